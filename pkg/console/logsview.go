package console

import (
	"context"
	"fmt"

	"github.com/robotalks/nodeterm/pkg/logstore"
)

// LogsPageSize is the number of records on a page of the logs viewer.
const LogsPageSize = 10

// FormatTimestamp renders a millisecond uptime as HH:MM:SS.
func FormatTimestamp(ms uint32) string {
	sec := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}

func (s *Session) logLine(ts uint32, level logstore.Level, module, message string) {
	s.paint(Muted, " "+FormatTimestamp(ts)+" ")
	s.printf(LevelRole(level), "%-7s", level)
	s.printf(Accent, " %-8s ", module)
	s.paint(Primary, message)
	s.write(CRLF)
}

func (s *Session) cmdLogs(ctx context.Context, line string) {
	store := s.logStore()
	if store == nil {
		s.status(Error, "Log storage not available")
		return
	}
	if store.Count() == 0 {
		s.status(Warning, "No logs stored")
		return
	}
	s.state = StateLogsViewer
	s.logsPage = 0
	s.logsPages = store.Pages(LogsPageSize)
	s.renderLogs()
}

func (s *Session) renderLogs() {
	store := s.logStore()
	s.write(ClearScreen)
	s.status(Info, "Stored Logs (page %d/%d, %d records)", s.logsPage+1, s.logsPages, store.Count())
	s.ruler()
	for _, r := range store.Page(s.logsPage, LogsPageSize) {
		s.logLine(r.Timestamp, r.Level, r.Module, r.Message)
	}
	s.ruler()
	s.paint(Muted, "[n]ext [p]rev [h]elp [q]uit")
	s.write(CRLF)
}

func (s *Session) logsViewerKey(ctx context.Context, ch byte) {
	switch ch {
	case 'n', 'N':
		if s.logsPage+1 >= s.logsPages {
			s.status(Warning, "Already on last page")
			return
		}
		s.logsPage++
		s.renderLogs()
	case 'p', 'P':
		if s.logsPage == 0 {
			s.status(Warning, "Already on first page")
			return
		}
		s.logsPage--
		s.renderLogs()
	case 'h', 'H':
		s.write(CRLF)
		s.status(Info, "Logs Viewer Help:")
		s.status(Primary, " n  next page")
		s.status(Primary, " p  previous page")
		s.status(Primary, " h  this help")
		s.status(Primary, " q  back to the command line")
	case 'q', 'Q':
		s.state = StateNormal
		s.write(CRLF)
		s.prompt()
	}
}
