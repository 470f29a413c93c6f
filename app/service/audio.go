package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"

	"github.com/voxsentry/voxsentry/app/entity"
)

var (
	ErrInvalidAudio = errors.New("audio file is damaged or not valid")
	ErrSilentAudio  = errors.New("audio is empty or contains only silence")
)

const (
	// The model is trained on 16 kHz mono input; everything is resampled
	// down (or up) to this rate before inference.
	targetSampleRate = 16000
	// Inference uses at most the first five seconds of the clip.
	maxClipSeconds = 5
	// Clips whose RMS falls below this are rejected as silence.
	silenceRMSFloor = 0.001
)

// Classifier is the external pretrained model: mono PCM samples at a fixed
// rate in, a label and confidence score out.
type Classifier interface {
	Classify(ctx context.Context, samples []float64, sampleRate int) (label string, score float64, err error)
}

type clipRepository interface {
	Create(ctx context.Context, clip *entity.Clip) error
	ListByUser(ctx context.Context, userID uint64) ([]*entity.Clip, error)
	ListByUserAndDevice(ctx context.Context, userID uint64, deviceID string) ([]*entity.Clip, error)
}

type ClipService interface {
	Predict(ctx context.Context, userID uint64, filename string, file io.ReadSeeker, deviceID string) (*entity.Clip, error)
	ListByUser(ctx context.Context, userID uint64) ([]*entity.Clip, error)
	ListByUserAndDevice(ctx context.Context, userID uint64, deviceID string) ([]*entity.Clip, error)
}

type ClipServiceOption func(*clipService)

type clipService struct {
	clipRepo   clipRepository
	classifier Classifier
	clock      Clock
}

func NewClipService(clipRepo clipRepository, classifier Classifier, opts ...ClipServiceOption) ClipService {
	svc := &clipService{
		clipRepo:   clipRepo,
		classifier: classifier,
		clock:      systemClock{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithClipClock(clock Clock) ClipServiceOption {
	return func(s *clipService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func (s *clipService) Predict(ctx context.Context, userID uint64, filename string, file io.ReadSeeker, deviceID string) (*entity.Clip, error) {
	samples, err := decodeWAV(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAudio, err.Error())
	}
	if rms(samples) < silenceRMSFloor {
		return nil, ErrSilentAudio
	}

	start := s.clock.Now()
	label, score, err := s.classifier.Classify(ctx, samples, targetSampleRate)
	if err != nil {
		return nil, err
	}
	end := s.clock.Now()

	if label != entity.ResultReal && label != entity.ResultSynthetic {
		return nil, fmt.Errorf("classifier returned unknown label %q", label)
	}

	clip := &entity.Clip{
		UserID:            userID,
		Filename:          filename,
		Result:            label,
		Score:             score,
		DeviceID:          nullString(deviceID),
		InferenceStart:    start,
		InferenceEnd:      end,
		InferenceDuration: end.Sub(start).Seconds(),
		CreatedAt:         end,
	}
	if err := s.clipRepo.Create(ctx, clip); err != nil {
		return nil, err
	}

	return clip, nil
}

func (s *clipService) ListByUser(ctx context.Context, userID uint64) ([]*entity.Clip, error) {
	return s.clipRepo.ListByUser(ctx, userID)
}

func (s *clipService) ListByUserAndDevice(ctx context.Context, userID uint64, deviceID string) ([]*entity.Clip, error) {
	return s.clipRepo.ListByUserAndDevice(ctx, userID, deviceID)
}

// decodeWAV turns an uploaded WAV stream into mono float64 samples at
// targetSampleRate, capped at maxClipSeconds.
func decodeWAV(r io.ReadSeeker) ([]float64, error) {
	decoder := wav.NewDecoder(r)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty PCM stream")
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, errors.New("no audio channels")
	}
	// The decoder copies the fmt chunk's sample rate without validating it;
	// a zero rate here would blow up the resampler.
	if buf.Format.SampleRate <= 0 {
		return nil, errors.New("invalid sample rate in header")
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))
	// 8-bit WAV is unsigned 0-255; recenter before scaling or silence sits
	// at +1.0 instead of 0.
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		mono[i] = (sum/float64(channels) - offset) / scale
	}

	if buf.Format.SampleRate != targetSampleRate {
		mono = resample(mono, buf.Format.SampleRate, targetSampleRate)
	}
	if limit := targetSampleRate * maxClipSeconds; len(mono) > limit {
		mono = mono[:limit]
	}

	return mono, nil
}

// resample converts between sample rates by linear interpolation. Good
// enough for speech fed to a classifier; not a general-purpose resampler.
func resample(in []float64, from, to int) []float64 {
	if from == to || len(in) == 0 {
		return in
	}

	ratio := float64(from) / float64(to)
	out := make([]float64, int(float64(len(in))/ratio))
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
