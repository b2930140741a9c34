package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/gt"
)

func TestDefault(t *testing.T) {
	c := catalog.Default()
	gt.A(t, c.Apps).Longer(10)
	gt.V(t, c.Apps[0]).Equal("Visual Studio Code")
	gt.A(t, c.ReservedNames).Length(22)
}

func TestFindApp(t *testing.T) {
	c := catalog.Default()

	testCases := []struct {
		text string
		want string
	}{
		{"用户在 Visual Studio Code 中编辑 main.rs", "Visual Studio Code"},
		{"在 VS Code 里调试", "VS Code"},
		{"在微信中聊天", "微信"},
		{"looking at a blank screen", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			gt.V(t, c.FindApp(tc.text)).Equal(tc.want)
		})
	}
}

func TestHasTroubleWord(t *testing.T) {
	c := catalog.Default()
	gt.True(t, c.HasTroubleWord("Build ERROR in module"))
	gt.True(t, c.HasTroubleWord("页面无响应"))
	gt.False(t, c.HasTroubleWord("用户正在阅读文档"))
}

func TestSelfWindow(t *testing.T) {
	c := catalog.Default()
	gt.True(t, c.IsSelfApp("Screen Assistant"))
	gt.True(t, c.IsSelfApp("glimpse - settings"))
	gt.False(t, c.IsSelfApp("Chrome"))
	gt.True(t, c.HasSelfMarker("打开了历史记录"))
	gt.True(t, c.HasSelfMarker("Chat History panel"))
	gt.False(t, c.HasSelfMarker("空白窗口"))
}

func TestIsReservedName(t *testing.T) {
	c := catalog.Default()
	gt.True(t, c.IsReservedName("CON"))
	gt.True(t, c.IsReservedName("lpt3"))
	gt.False(t, c.IsReservedName("console"))
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		c, err := catalog.Load("")
		gt.NoError(t, err)
		gt.V(t, c.Apps[0]).Equal("Visual Studio Code")
	})

	t.Run("overlay replaces only given lists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("apps:\n  - Zed\n  - Vim\n"), 0644))

		c, err := catalog.Load(path)
		gt.NoError(t, err)
		gt.A(t, c.Apps).Length(2)
		gt.V(t, c.FindApp("editing in Vim")).Equal("Vim")
		gt.True(t, c.HasTroubleWord("失败"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		gt.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("apps: [unclosed"), 0644))
		_, err := catalog.Load(path)
		gt.Error(t, err)
	})
}
