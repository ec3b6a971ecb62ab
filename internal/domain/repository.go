package domain

import "context"

// JobPatch carries the mutable fields of a job record update. Nil fields are
// left untouched; updates are last-writer-wins.
type JobPatch struct {
	Status       *JobStatus
	Progress     *int
	OutputName   *string
	ErrorMessage *string
}

// JobStore defines persistence for conversion jobs.
//
// Claim is the single authoritative gate into the converting state: it must
// atomically move a pending or failed job to converting with progress reset
// to 5, and report whether this call performed the transition. Two
// concurrent Claim calls for the same id must never both report claimed.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, id string, patch JobPatch) (*Job, error)
	List(ctx context.Context, limit int) ([]*Job, error)
	Claim(ctx context.Context, id string) (bool, *Job, error)
}
