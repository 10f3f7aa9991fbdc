package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/fxamacker/cbor/v2"

	"depthmeter-go/internal/output"
)

type Args struct {
	Path  string `arg:"positional,required" help:"rawlog .bin file"`
	Limit int    `arg:"-n,--limit" help:"number of records to dump, 0 for all"`
}

func main() {
	args := Args{Limit: 1}
	arg.MustParse(&args)

	f, err := os.Open(args.Path)
	if err != nil {
		log.Fatalf("open rawlog: %v", err)
	}
	defer f.Close()

	decMode, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		log.Fatalf("cbor options: %v", err)
	}

	reader, err := output.NewRawLogReader(f)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for count := 0; args.Limit <= 0 || count < args.Limit; count++ {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Fatalf("record %d: %v", count, err)
		}
		if rec.Skipped > 0 {
			log.Printf("%d records missing before seq %d", rec.Skipped, rec.Seq)
		}
		if len(rec.Payload) == 0 {
			log.Printf("record %d: empty payload", count)
			continue
		}

		var decoded map[string]any
		if err := decMode.Unmarshal(rec.Payload, &decoded); err != nil {
			log.Printf("record %d: CBOR decode error: %v", count, err)
			continue
		}
		if data, ok := decoded["data"].([]byte); ok {
			decoded["data"] = fmt.Sprintf("<%d bytes>", len(data))
		} else if _, ok := decoded["data"]; ok {
			decoded["data"] = "<typed array>"
		}

		pretty, err := json.MarshalIndent(decoded, "", "  ")
		if err != nil {
			log.Printf("record %d: JSON encode error: %v", count, err)
			continue
		}

		log.Printf("record %d seq=%d timestamp=%s size=%d", count, rec.Seq, rec.Time.Format(time.RFC3339Nano), len(rec.Payload))
		fmt.Println(string(pretty))
	}
}
