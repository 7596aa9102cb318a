// Package validation checks configuration and API input.
//
// Struct tags are checked with go-playground/validator. Two extra tags are
// registered: multiple_of_64 for image dimensions and min_words=N for
// transcript text.
//
//	type TranscriptRequest struct {
//	    Text string `json:"text" validate:"required,min_words=3"`
//	}
//	err := validation.Validate(req)
//
// Rules that depend on more than one field use a Checker:
//
//	c := validation.New()
//	c.Check(cfg.JitterMin <= cfg.JitterMax, "retry.jitter_min", "must not exceed retry.jitter_max")
//	err := c.Err()
package validation
