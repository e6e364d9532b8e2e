package predict

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DNNBackend runs inference with OpenCV's DNN module. It accepts the model
// formats OpenCV can read directly (frozen TensorFlow .pb, ONNX, Caffe).
type DNNBackend struct {
	mu  sync.Mutex // gocv.Net forward passes are not reentrant
	net gocv.Net
	log zerolog.Logger
}

// LoadDNN loads a model file. A missing or unreadable model is a fatal
// configuration error, reported before any detection runs.
func LoadDNN(modelPath string, logger zerolog.Logger) (*DNNBackend, error) {
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("model path %s is a directory; OpenCV needs a single model file", modelPath)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("OpenCV could not load model %s", modelPath)
	}
	logger.Debug().Str("model", modelPath).Msg("loaded model with OpenCV DNN")
	return &DNNBackend{net: net, log: logger}, nil
}

// Infer runs a forward pass over the tile and converts the raw network output
// into a prediction map.
func (b *DNNBackend) Infer(ctx context.Context, tile *Tile) (*Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := tileToMat(tile)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(tile.Width, tile.Height),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	b.mu.Lock()
	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	b.mu.Unlock()
	defer out.Close()

	return matToMap(out, b.log)
}

// Close releases the underlying network.
func (b *DNNBackend) Close() error {
	return b.net.Close()
}

func tileToMat(tile *Tile) (gocv.Mat, error) {
	var mt gocv.MatType
	switch tile.Channels {
	case 1:
		mt = gocv.MatTypeCV32FC1
	case 3:
		mt = gocv.MatTypeCV32FC3
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported tile channel count %d", tile.Channels)
	}

	mat := gocv.NewMatWithSize(tile.Height, tile.Width, mt)
	for y := 0; y < tile.Height; y++ {
		for x := 0; x < tile.Width; x++ {
			for c := 0; c < tile.Channels; c++ {
				mat.SetFloatAt(y, x*tile.Channels+c, tile.At(x, y, c))
			}
		}
	}
	return mat, nil
}

// matToMap converts a 4D network output into an HWC prediction map. OpenCV
// reports NCHW for most graphs, but some exported models keep NHWC; the
// smaller of the two candidate dimensions is taken to be the channel axis.
func matToMap(out gocv.Mat, logger zerolog.Logger) (*Map, error) {
	dims := out.Size()
	if len(dims) != 4 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected network output shape %v", dims)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading network output: %w", err)
	}

	var h, w, c int
	nchw := dims[1] <= dims[3]
	if nchw {
		c, h, w = dims[1], dims[2], dims[3]
	} else {
		h, w, c = dims[1], dims[2], dims[3]
		logger.Debug().Ints("dims", dims).Msg("interpreting network output as NHWC")
	}

	m := NewMap(w, h, c)
	if nchw {
		plane := h * w
		for ch := 0; ch < c; ch++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					m.Set(x, y, ch, data[ch*plane+y*w+x])
				}
			}
		}
	} else {
		copy(m.Pixels, data)
	}
	return m, nil
}
