package audio

import "errors"

// ErrEmptyFile indicates the audio file has zero bytes.
var ErrEmptyFile = errors.New("audio file is empty")

// ErrTruncatedFile indicates the audio file is too small to be playable audio.
var ErrTruncatedFile = errors.New("audio file is truncated")

// ErrUnsupportedFormat indicates the file extension is not in the accepted set.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrTranscoderUnavailable indicates no usable ffmpeg codec could compress the audio.
var ErrTranscoderUnavailable = errors.New("transcoder unavailable")

// ErrSegmentationFailed indicates ffmpeg failed while slicing the audio.
var ErrSegmentationFailed = errors.New("audio segmentation failed")

// ErrValidationFailed indicates a produced artifact did not pass re-validation.
var ErrValidationFailed = errors.New("artifact validation failed")
