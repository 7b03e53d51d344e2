package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/hatlonely/flakeless/uid/strgen"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// runGen 在本地生成 ID，每行一个
func runGen(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("gen", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outputType := fs.String("output-type", "base64", "output type: base10, base16, base64")
	workerID := fs.Uint64("worker-id", 0, "worker id, only the low 10 bits are used")
	workerIDFromIP := fs.Bool("worker-id-from-ip", false, "derive worker id from host IPv4 address")
	epochStart := fs.Uint64("epoch-start", 0, "epoch start in unix milliseconds")
	n := fs.IntP("amount", "n", 1, "number of ids")
	timeout := fs.Duration("timeout", 5*time.Second, "timeout for generating all ids")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "invalid flags")
	}

	generator, err := strgen.NewFlakeGeneratorWithOptions(&strgen.Options{
		EpochStart:     *epochStart,
		WorkerID:       *workerID,
		WorkerIDFromIP: *workerIDFromIP,
		OutputType:     *outputType,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	ids, err := strgen.GenerateN(ctx, generator, *n)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(stdout, id)
	}
	return nil
}

// runDecode 拆分 ID 的时间戳、机器ID和序列号
func runDecode(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outputType := fs.String("output-type", "base64", "output type the id was encoded with")
	epochStart := fs.Uint64("epoch-start", 0, "epoch start in unix milliseconds")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "invalid flags")
	}
	if fs.NArg() == 0 {
		return errors.New("no id to decode")
	}

	format, err := strgen.ParseFormat(*outputType)
	if err != nil {
		return err
	}

	for _, id := range fs.Args() {
		value, err := format.Decode(id)
		if err != nil {
			return err
		}
		parts := intgen.Unpack(value)
		fmt.Fprintf(stdout, "id=%s value=%d timestamp=%d time=%s worker=%d sequence=%d\n",
			id, value, parts.Timestamp,
			parts.Time(*epochStart).UTC().Format(time.RFC3339Nano),
			parts.WorkerID, parts.Sequence,
		)
	}
	return nil
}
