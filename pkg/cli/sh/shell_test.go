package sh

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nodeterm/pkg/config"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

func TestOpenImage(t *testing.T) {
	ctx := context.Background()
	conf := config.NewConfig()
	path := filepath.Join(t.TempDir(), "node.flash")

	img, err := OpenImage(ctx, path, conf)
	require.NoError(t, err)
	info := img.Info()
	require.Equal(t, 0, info.Records)
	require.Equal(t, conf.LogSlots, info.Capacity)
	require.Equal(t, "admin", info.Username)
	require.True(t, info.UsingDefaults)

	require.NoError(t, img.Logs.Add(ctx, logstore.LevelLogin, "auth", "Login admin"))
	require.NoError(t, img.Accounts.Change(ctx, "operator", "s3cret"))
	require.NoError(t, img.Close())

	img, err = OpenImage(ctx, path, conf)
	require.NoError(t, err)
	defer img.Close()
	info = img.Info()
	require.Equal(t, 1, info.Records)
	require.Equal(t, "operator", info.Username)
	require.False(t, info.UsingDefaults)
}

func TestOpenImageInvalidLayout(t *testing.T) {
	conf := config.NewConfig()
	conf.FlashSectors = 1
	_, err := OpenImage(context.Background(), filepath.Join(t.TempDir(), "node.flash"), conf)
	require.Error(t, err)
}

func TestInfoCmd(t *testing.T) {
	conf := config.NewConfig()
	conf.Flash = filepath.Join(t.TempDir(), "node.flash")
	s := New(conf)
	var out bytes.Buffer
	s.Shell.SetOut(&out)

	require.EqualError(t, s.Shell.Process("info"), "no image opened")

	require.NoError(t, s.Shell.Process("open"))
	require.NotNil(t, s.Image)
	require.NoError(t, s.Shell.Process("info"))
	require.Contains(t, out.String(), "logs: 0/50 records")
	require.Contains(t, out.String(), "user: admin (factory default)")

	out.Reset()
	s.OutputJSON = true
	require.NoError(t, s.Shell.Process("i"))
	require.Contains(t, out.String(), `"username":"admin"`)

	require.NoError(t, s.Shell.Process("close"))
	require.Nil(t, s.Image)
}
