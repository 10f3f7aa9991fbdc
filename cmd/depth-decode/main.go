package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	arg "github.com/alexflint/go-arg"
	"github.com/fxamacker/cbor/v2"
)

const (
	tagMultiDimArray = 40
	tagCompressed    = 56500
)

type Args struct {
	Path  string `arg:"positional,required" help:"CBOR file or directory of .cbor files"`
	Limit int    `arg:"-n,--limit" help:"max number of depth messages to summarize"`
}

func (Args) Description() string {
	return "Summarize captured depth stream messages."
}

func main() {
	args := Args{Limit: 5}
	arg.MustParse(&args)

	files, err := listFiles(args.Path)
	if err != nil {
		log.Fatalf("list files: %v", err)
	}

	counts := map[string]int{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("read %s: %v", file, err)
			continue
		}

		msg, err := decodeMessage(data)
		if err != nil {
			log.Printf("decode %s: %v", file, err)
			continue
		}
		counts[msg.Type]++

		switch msg.Type {
		case "start":
			fmt.Printf("start: %s\n", file)
			for _, f := range msg.Formats {
				fmt.Printf("  format: %s\n", f)
			}
		case "thermal":
			fmt.Printf("thermal: %s %s\n", file, msg.Detail)
		case "depth":
			if counts["depth"] <= args.Limit {
				fmt.Printf("depth: %s\n", file)
				fmt.Printf("  frame_id: %v\n", msg.FrameID)
				fmt.Printf("  data: %s\n", msg.Detail)
			}
		}
	}

	fmt.Printf("summary: start=%d depth=%d thermal=%d end=%d\n",
		counts["start"], counts["depth"], counts["thermal"], counts["end"])
}

type messageSummary struct {
	Type    string
	FrameID any
	Formats []string
	Detail  string
}

func decodeMessage(data []byte) (messageSummary, error) {
	var payload map[string]any
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return messageSummary{}, err
	}
	msgType, _ := payload["type"].(string)
	summary := messageSummary{Type: msgType}
	switch msgType {
	case "start":
		if formats, ok := payload["formats"].([]any); ok {
			for _, f := range formats {
				summary.Formats = append(summary.Formats, fmt.Sprint(f))
			}
		}
	case "thermal":
		summary.Detail = fmt.Sprint(payload["state"])
	case "depth":
		summary.FrameID = payload["frame_id"]
		summary.Detail = fmt.Sprintf("%v %vx%v stride %v, %s",
			payload["pixel_format"], payload["width"], payload["height"], payload["bytes_per_row"],
			describeData(payload["data"]))
	}
	return summary, nil
}

func describeData(value any) string {
	switch v := value.(type) {
	case []byte:
		return fmt.Sprintf("%d raw bytes", len(v))
	case cbor.Tag:
		switch v.Number {
		case tagMultiDimArray:
			items, ok := v.Content.([]any)
			if !ok || len(items) != 2 {
				return "invalid multidim"
			}
			inner, _ := items[1].(cbor.Tag)
			if nested, ok := inner.Content.(cbor.Tag); ok && nested.Number == tagCompressed {
				return fmt.Sprintf("dims %v (compressed)", items[0])
			}
			return fmt.Sprintf("dims %v tag %d", items[0], inner.Number)
		case tagCompressed:
			return "compressed bytes"
		default:
			return fmt.Sprintf("tag %d", v.Number)
		}
	default:
		return fmt.Sprintf("type %T", value)
	}
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".cbor" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
