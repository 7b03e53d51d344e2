package def

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type serverOptions struct {
	Addr      string        `def:":6000"`
	MaxAmount int           `def:"10000"`
	Timeout   time.Duration `def:"1s"`
	Ratio     float64       `def:"0.5"`
	Tags      []string      `def:"a, b"`
	Ports     []int         `def:"1,2"`
	Retry     *int          `def:"3"`
	Skipped   string        `cfg:"-" def:"ignored"`
	Nested    nestedOptions
	Ptr       *nestedOptions
	List      []nestedOptions
}

type nestedOptions struct {
	Format string `def:"base64"`
}

func TestSetDefaults(t *testing.T) {
	Convey("设置默认值", t, func() {
		Convey("零值字段被设置", func() {
			var options serverOptions
			So(SetDefaults(&options), ShouldBeNil)
			So(options.Addr, ShouldEqual, ":6000")
			So(options.MaxAmount, ShouldEqual, 10000)
			So(options.Timeout, ShouldEqual, time.Second)
			So(options.Ratio, ShouldEqual, 0.5)
			So(options.Tags, ShouldResemble, []string{"a", "b"})
			So(options.Ports, ShouldResemble, []int{1, 2})
			So(*options.Retry, ShouldEqual, 3)
			So(options.Skipped, ShouldEqual, "")
			So(options.Nested.Format, ShouldEqual, "base64")
			So(options.Ptr, ShouldBeNil)
		})

		Convey("非零值不被覆盖", func() {
			options := serverOptions{
				Addr:  ":8080",
				Ptr:   &nestedOptions{},
				List:  []nestedOptions{{Format: "base10"}, {}},
				Ports: []int{9},
			}
			So(SetDefaults(&options), ShouldBeNil)
			So(options.Addr, ShouldEqual, ":8080")
			So(options.Ports, ShouldResemble, []int{9})
			So(options.Ptr.Format, ShouldEqual, "base64")
			So(options.List[0].Format, ShouldEqual, "base10")
			So(options.List[1].Format, ShouldEqual, "base64")
		})

		Convey("非法参数", func() {
			So(SetDefaults(nil), ShouldNotBeNil)
			So(SetDefaults(serverOptions{}), ShouldNotBeNil)
			So(SetDefaults((*serverOptions)(nil)), ShouldNotBeNil)

			bad := struct {
				N int `def:"abc"`
			}{}
			So(SetDefaults(&bad), ShouldNotBeNil)
		})
	})
}
