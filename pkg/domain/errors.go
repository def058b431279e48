package domain

import "errors"

// ErrFragmentNotFound is returned when an override names a fragment ID that does not exist in the prompt.
var ErrFragmentNotFound = errors.New("fragment not found")

// ErrOptionOutOfRange is returned when an override selects an option index outside the fragment's options.
var ErrOptionOutOfRange = errors.New("option out of range")

// ErrFixedFragment is returned when an override targets an alternation with a single option.
var ErrFixedFragment = errors.New("fragment has no alternatives")

// ErrEmptyCorpus is returned when a generation is requested but no templates are loaded.
var ErrEmptyCorpus = errors.New("corpus has no templates")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrEntryNotFound is returned when a history entry cannot be found in a session.
var ErrEntryNotFound = errors.New("history entry not found")

// ErrTemplateNotFound is returned when a template index is outside the loaded corpus.
var ErrTemplateNotFound = errors.New("template not found")
