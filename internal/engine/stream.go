package engine

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

const (
	eventProgress      = "progress"
	eventTableComplete = "table_complete"
	eventComplete      = "complete"
	eventError         = "error"
)

// event is one decoded protocol line. Numeric fields are pointers so the
// estimator can tell an absent field from a reported zero.
type event struct {
	Type         string   `json:"type"`
	Table        string   `json:"table"`
	RowsMigrated *int64   `json:"rows_migrated"`
	TotalRows    *int64   `json:"total_rows"`
	Percentage   *float64 `json:"percentage"`
	Message      string   `json:"message"`
}

// decodeEvent parses one output line. Lines that are not JSON or carry an
// unknown type are dropped: the migration tool's line framing is not
// guaranteed, so partial writes and stray log output must stay non-fatal.
func decodeEvent(line []byte) (event, bool) {
	var ev event
	if err := json.Unmarshal(line, &ev); err != nil {
		return event{}, false
	}
	switch ev.Type {
	case eventProgress, eventTableComplete, eventComplete, eventError:
		return ev, true
	}
	return event{}, false
}

func stdoutEvent(t string) bool {
	return t == eventProgress || t == eventTableComplete || t == eventComplete
}

func stderrEvent(t string) bool { return t == eventError }

// consumeLines reads r line by line until EOF, handing each decoded event
// of an accepted type to emit, in stream order.
func consumeLines(r io.Reader, accept func(string) bool, emit func(event)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, ok := decodeEvent(line)
		if !ok || !accept(ev.Type) {
			continue
		}
		emit(ev)
	}
}
