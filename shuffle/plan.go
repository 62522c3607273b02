package shuffle

import (
	"fmt"
	"time"

	"github.com/arloliu/shufflepack/compress"
	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/format"
)

// planner evaluates the compression policy for one pack call: which source
// regions get a codec attempt, and what happens when the codec does not
// help.
//
// The threshold rule is exclusive on the compress side: a region is
// attempted only when its raw length is strictly greater than the
// threshold. At exactly the threshold the raw path is taken. When an
// attempt yields no reduction (the codec reports incompressible input, or
// the compressed form is not smaller), the raw bytes are stored instead, so
// packing never grows a region.
type planner struct {
	codec     compress.Codec
	threshold int64
	elapsed   *CompressionTime
}

func (pl *planner) codecType() format.CompressionType {
	if pl.codec == nil {
		return format.CompressionNone
	}

	return pl.codec.Type()
}

// fill writes src into dst either compressed or verbatim, returning the
// bytes written and whether they are compressed. dst must be sized to the
// codec's bound for src (which is never below len(src), so the raw path
// always fits).
//
// Time spent inside the codec is added to the planner's accumulator.
func (pl *planner) fill(dst, src []byte) (int, bool, error) {
	rawLen := int64(len(src))
	if pl.codec == nil || pl.codecType() == format.CompressionNone || rawLen <= pl.threshold {
		return copy(dst, src), false, nil
	}

	start := time.Now()
	n, err := pl.codec.Compress(dst, src)
	pl.elapsed.AddSince(start)
	if err != nil {
		return 0, false, fmt.Errorf("%w: compressing %d bytes with %s: %w",
			errs.ErrCodec, rawLen, pl.codec.Type(), err)
	}
	if n == 0 || int64(n) >= rawLen {
		return copy(dst, src), false, nil
	}

	return n, true, nil
}
