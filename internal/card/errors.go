package card

// ImageFormatError reports an upload that could not be decoded as an image.
// Its message is safe to show to the caller.
type ImageFormatError struct {
	Message string
}

func (e *ImageFormatError) Error() string { return e.Message }

// ImageSizeError reports an image that stayed over the size ceiling after
// compression. Its message is safe to show to the caller.
type ImageSizeError struct {
	Message string
}

func (e *ImageSizeError) Error() string { return e.Message }
