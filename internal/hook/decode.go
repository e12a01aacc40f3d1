package hook

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Hara602/activitySentry/internal/model"
)

// DecodeInputEvents 把一次 read 的结果切成 input_event，末尾不足一个结构体的部分丢弃
func DecodeInputEvents(buf []byte) ([]model.InputEvent, error) {
	events := make([]model.InputEvent, 0, len(buf)/model.InputEventSize)
	for off := 0; off+model.InputEventSize <= len(buf); off += model.InputEventSize {
		var ev model.InputEvent
		reader := bytes.NewReader(buf[off : off+model.InputEventSize])
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			return events, fmt.Errorf("decode input_event at %d: %w", off, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
