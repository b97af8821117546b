package service

import (
	"errors"

	"github.com/wricardo/shapegrid/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")

	// ErrEpisodeDone is returned when stepping a finished episode.
	ErrEpisodeDone = engine.ErrEpisodeDone
)
