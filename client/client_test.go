package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hatlonely/flakeless/server"
	"github.com/hatlonely/flakeless/uid/strgen"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer() *httptest.Server {
	gin.SetMode(gin.TestMode)

	s, err := server.New(&server.Options{MaxAmount: 10}, nil)
	So(err, ShouldBeNil)
	g, err := strgen.NewFlakeGeneratorWithOptions(&strgen.Options{WorkerID: 34})
	So(err, ShouldBeNil)
	So(s.AddGenerator("orders", g), ShouldBeNil)

	return httptest.NewServer(s.Handler())
}

func TestClient(t *testing.T) {
	Convey("客户端", t, func() {
		ts := newTestServer()
		defer ts.Close()

		ctx := context.Background()

		Convey("获取 ID", func() {
			c, err := New(&Options{BaseURL: ts.URL + "/", Namespace: "orders"})
			So(err, ShouldBeNil)
			So(c.Ping(ctx), ShouldBeNil)

			ids, err := c.Next(ctx, 5)
			So(err, ShouldBeNil)
			So(len(ids), ShouldEqual, 5)
			for _, id := range ids {
				So(len(id), ShouldEqual, 11)
				So(string(id[8]), ShouldEqual, "X")
			}
		})

		Convey("msgpack 编码", func() {
			c, err := New(&Options{BaseURL: ts.URL, Namespace: "orders", Codec: "msgpack"})
			So(err, ShouldBeNil)
			ids, err := c.Next(ctx, 3)
			So(err, ShouldBeNil)
			So(len(ids), ShouldEqual, 3)
			So(ids[0] < ids[1] && ids[1] < ids[2], ShouldBeTrue)

			_, err = New(&Options{BaseURL: ts.URL, Namespace: "orders", Codec: "xml"})
			So(err, ShouldNotBeNil)
		})

		Convey("命名空间不存在", func() {
			c, err := New(&Options{BaseURL: ts.URL, Namespace: "users"})
			So(err, ShouldBeNil)
			_, err = c.Next(ctx, 1)
			So(errors.Cause(err), ShouldEqual, ErrInvalidNamespace)
		})

		Convey("超出最大数量", func() {
			c, err := New(&Options{BaseURL: ts.URL, Namespace: "orders"})
			So(err, ShouldBeNil)
			_, err = c.Next(ctx, 11)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "400")

			_, err = c.Next(ctx, 0)
			So(err, ShouldNotBeNil)
		})

		Convey("ctx 取消", func() {
			c, err := New(&Options{BaseURL: ts.URL, Namespace: "orders"})
			So(err, ShouldBeNil)
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err = c.Next(cctx, 1)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("服务不可用", t, func() {
		c, err := New(&Options{BaseURL: "http://127.0.0.1:1", Namespace: "orders", Timeout: 100 * time.Millisecond})
		So(err, ShouldBeNil)
		So(c.Ping(context.Background()), ShouldNotBeNil)
	})

	Convey("参数校验", t, func() {
		_, err := New(nil)
		So(err, ShouldNotBeNil)
		_, err = New(&Options{Namespace: "orders"})
		So(err, ShouldNotBeNil)
		_, err = New(&Options{BaseURL: "http://127.0.0.1:6000"})
		So(err, ShouldNotBeNil)

		c, err := New(&Options{BaseURL: "http://127.0.0.1:6000", Namespace: "orders"})
		So(err, ShouldBeNil)
		So(c.client.Timeout, ShouldEqual, time.Second)
	})
}
