package decoder

import (
	"testing"
	"time"

	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/hatlonely/flakeless/ref"
	. "github.com/smartystreets/goconvey/convey"
)

type serverOptions struct {
	Addr      string        `cfg:"addr"`
	MaxAmount int           `cfg:"maxAmount"`
	Timeout   time.Duration `cfg:"timeout"`
	Debug     bool          `cfg:"debug"`
}

type generatorOptions struct {
	WorkerID   uint64 `cfg:"workerID"`
	OutputType string `cfg:"outputType"`
}

const jsonText = `{
  // 服务配置
  "server": {
    "addr": ":6000",
    "maxAmount": 10000,
    "timeout": "1s",
    "debug": true, /* 尾随逗号 */
  },
  "generator": {"workerID": 34, "outputType": "base16"},
  "url": "http://example.com/a//b"
}`

const yamlText = `
server:
  addr: ":6000"
  maxAmount: 10000
  timeout: 1s
  debug: true
generator:
  workerID: 34
  outputType: base16
`

const tomlText = `
[server]
addr = ":6000"
maxAmount = 10000
timeout = "1s"
debug = true

[generator]
workerID = 34
outputType = "base16"
`

const iniText = `
[server]
addr = :6000
maxAmount = 10000
timeout = 1s
debug = true

[generator]
workerID = 34
outputType = base16
`

func TestDecoders(t *testing.T) {
	Convey("各格式解码结果一致", t, func() {
		for _, tc := range []struct {
			name    string
			decoder Decoder
			text    string
		}{
			{"json5", NewJsonDecoderWithOptions(&JsonDecoderOptions{UseJSON5: true}), jsonText},
			{"yaml", NewYamlDecoderWithOptions(nil), yamlText},
			{"toml", NewTomlDecoderWithOptions(nil), tomlText},
			{"ini", NewIniDecoderWithOptions(nil), iniText},
		} {
			s, err := tc.decoder.Decode([]byte(tc.text))
			So(err, ShouldBeNil)

			var server serverOptions
			So(s.Sub("server").ConvertTo(&server), ShouldBeNil)
			So(server, ShouldResemble, serverOptions{Addr: ":6000", MaxAmount: 10000, Timeout: time.Second, Debug: true})

			var gen generatorOptions
			So(s.Sub("generator").ConvertTo(&gen), ShouldBeNil)
			So(gen, ShouldResemble, generatorOptions{WorkerID: 34, OutputType: "base16"})

			// 编码后再解码数据不变
			data, err := tc.decoder.Encode(s)
			So(err, ShouldBeNil)
			s2, err := tc.decoder.Decode(data)
			So(err, ShouldBeNil)
			var gen2 generatorOptions
			So(s2.Sub("generator").ConvertTo(&gen2), ShouldBeNil)
			So(gen2, ShouldResemble, gen)
		}
	})

	Convey("JSON5 保留字符串中的 //", t, func() {
		s, err := NewJsonDecoderWithOptions(&JsonDecoderOptions{UseJSON5: true}).Decode([]byte(jsonText))
		So(err, ShouldBeNil)
		So(s.Sub("url").(*storage.MapStorage).Data(), ShouldEqual, "http://example.com/a//b")
	})

	Convey("标准 JSON 不支持注释", t, func() {
		_, err := NewJsonDecoderWithOptions(nil).Decode([]byte(jsonText))
		So(err, ShouldNotBeNil)
	})

	Convey("INI 嵌套 section 和重复键", t, func() {
		d := NewIniDecoderWithOptions(&IniDecoderOptions{AllowShadows: true})
		s, err := d.Decode([]byte("[server.metrics]\npath = /metrics\n[namespace]\nnames = orders\nnames = users\n"))
		So(err, ShouldBeNil)
		So(s.Sub("server.metrics.path").(*storage.MapStorage).Data(), ShouldEqual, "/metrics")

		var names []string
		So(s.Sub("namespace.names").ConvertTo(&names), ShouldBeNil)
		So(names, ShouldResemble, []string{"orders", "users"})
	})

	Convey("非法数据", t, func() {
		_, err := NewYamlDecoderWithOptions(nil).Decode([]byte("a: [1"))
		So(err, ShouldNotBeNil)
		_, err = NewTomlDecoderWithOptions(nil).Decode([]byte("a = "))
		So(err, ShouldNotBeNil)
	})

	Convey("通过 ref 创建", t, func() {
		d, err := NewDecoderWithOptions(&ref.TypeOptions{
			Namespace: "github.com/hatlonely/flakeless/cfg/decoder",
			Type:      "YamlDecoder",
		})
		So(err, ShouldBeNil)
		So(d, ShouldHaveSameTypeAs, &YamlDecoder{})

		_, err = NewDecoderWithOptions(nil)
		So(err, ShouldNotBeNil)
	})
}
