package translation

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MaxFrameLength bounds the length field accepted by LengthPrefixedFrames.
const MaxFrameLength = 16 << 20

// Names of the built-in functions.
const (
	FuncBytesToString        = "bytes_to_string"
	FuncStringToBytes        = "string_to_bytes"
	FuncUTF8Text             = "utf8_text"
	FuncLengthPrefixedFrames = "length_prefixed_frames"
	FuncLengthPrefix         = "length_prefix"
)

func registerBuiltins(r *FuncRegistry) {
	r.convert[FuncBytesToString] = BytesToString
	r.convert[FuncStringToBytes] = StringToBytes
	r.convert[FuncLengthPrefix] = LengthPrefix
	r.backtrack[FuncUTF8Text] = UTF8Text
	r.sliding[FuncLengthPrefixedFrames] = LengthPrefixedFrames
}

// BytesToString converts an octetstring into a charstring.
func BytesToString(in any) any {
	switch v := in.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// StringToBytes converts a charstring into an octetstring.
func StringToBytes(in any) any {
	switch v := in.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return []byte(fmt.Sprint(v))
	}
}

// LengthPrefix frames an octetstring with a 4-byte big-endian length, the
// inverse of LengthPrefixedFrames.
func LengthPrefix(in any) any {
	payload, _ := StringToBytes(in).([]byte)

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	return frame
}

// UTF8Text accepts an octetstring only if it is valid UTF-8 text.
func UTF8Text(ctx *Ctx, in any, out *any) bool {
	b, ok := in.([]byte)
	if !ok || !utf8.Valid(b) {
		ctx.SetState(NotTranslated)
		return false
	}

	*out = string(b)
	ctx.SetState(Translated)

	return true
}

// LengthPrefixedFrames decodes frames made of a 4-byte big-endian length and
// that many payload bytes.
func LengthPrefixedFrames(ctx *Ctx, buf []byte, out *any) (int, SlidingResult) {
	if len(buf) < 4 {
		ctx.SetState(Fragmented)
		return 0, SlidingNeedMoreData
	}

	n := binary.BigEndian.Uint32(buf)
	if n > MaxFrameLength {
		ctx.SetState(NotTranslated)
		return 0, SlidingFailure
	}

	end := 4 + int(n)
	if len(buf) < end {
		ctx.SetState(Fragmented)
		return 0, SlidingNeedMoreData
	}

	*out = append([]byte(nil), buf[4:end]...)

	if len(buf) > end {
		ctx.SetState(PartiallyTranslated)
	} else {
		ctx.SetState(Translated)
	}

	return end, SlidingSuccess
}
