package engine

import "errors"

var (
	// ErrInvalidParams is returned when generation parameters cannot host the
	// requested topology. No partial grid is returned alongside it.
	ErrInvalidParams = errors.New("invalid generation params")
	// ErrInvalidAction is returned for an action outside the known set.
	ErrInvalidAction = errors.New("invalid action")
	// ErrSamplerExhausted is returned when no free start cell could be found.
	ErrSamplerExhausted = errors.New("unoccupied cell sampler exhausted")
	// ErrEpisodeDone is returned by GameEngine.Step once the episode has
	// terminated or been truncated.
	ErrEpisodeDone = errors.New("episode is over")
)
