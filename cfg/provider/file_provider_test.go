package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/flakeless/ref"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFileProvider(t *testing.T) {
	Convey("文件提供者", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "flakeless.yaml")
		So(os.WriteFile(path, []byte("a: 1\n"), 0644), ShouldBeNil)

		p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: path})
		So(err, ShouldBeNil)
		defer p.Close()

		Convey("读写", func() {
			data, err := p.Load()
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "a: 1\n")

			So(p.Save([]byte("a: 2\n")), ShouldBeNil)
			data, err = p.Load()
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "a: 2\n")
		})

		Convey("监听文件变更", func() {
			changes := make(chan string, 16)
			p.OnChange(func(data []byte) error {
				changes <- string(data)
				return nil
			})
			So(p.Watch(), ShouldBeNil)
			So(p.Watch(), ShouldBeNil)

			// 同目录的其他文件不触发
			So(os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 1\n"), 0644), ShouldBeNil)
			So(os.WriteFile(path, []byte("a: 3\n"), 0644), ShouldBeNil)

			deadline := time.After(5 * time.Second)
			var got string
			for got != "a: 3\n" {
				select {
				case got = <-changes:
					So(got, ShouldNotEqual, "b: 1\n")
				case <-deadline:
					So("timeout waiting for change", ShouldBeEmpty)
					return
				}
			}

			So(p.Close(), ShouldBeNil)
			So(p.Close(), ShouldBeNil)
		})

		Convey("文件不存在", func() {
			p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: filepath.Join(dir, "missing.yaml")})
			So(err, ShouldBeNil)
			_, err = p.Load()
			So(err, ShouldNotBeNil)
		})
	})

	Convey("参数校验", t, func() {
		_, err := NewFileProviderWithOptions(nil)
		So(err, ShouldNotBeNil)

		p, err := NewProviderWithOptions(&ref.TypeOptions{
			Namespace: "github.com/hatlonely/flakeless/cfg/provider",
			Type:      "FileProvider",
			Options:   &FileProviderOptions{FilePath: "flakeless.yaml"},
		})
		So(err, ShouldBeNil)
		So(filepath.IsAbs(p.(*FileProvider).FilePath()), ShouldBeTrue)
	})
}
