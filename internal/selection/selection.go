// Package selection picks the next question to present from a candidate
// pool annotated with each question's most recent schedule.
//
// Candidates fall into three buckets, consulted in priority order:
//
//	overdue      next show time at or before now; the latest one wins
//	unscheduled  never scheduled; the oldest question wins
//	upcoming     next show time after now; the soonest one wins
//
// Ties in any bucket go to the lowest question id.
package selection

import (
	"time"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/errors"
)

// Mode chooses which buckets a selection consults.
type Mode string

// Supported selection modes.
const (
	ModeNext        Mode = "next"
	ModeOverdue     Mode = "overdue"
	ModeUnscheduled Mode = "unscheduled"
	ModeUpcoming    Mode = "upcoming"
)

// Bucket names the partition a selected question came from.
type Bucket string

// Buckets. BucketNone accompanies an empty result.
const (
	BucketNone        Bucket = ""
	BucketOverdue     Bucket = "overdue"
	BucketUnscheduled Bucket = "unscheduled"
	BucketUpcoming    Bucket = "upcoming"
)

var modeBuckets = map[Mode][]Bucket{
	ModeNext:        {BucketOverdue, BucketUnscheduled, BucketUpcoming},
	ModeOverdue:     {BucketOverdue},
	ModeUnscheduled: {BucketUnscheduled},
	ModeUpcoming:    {BucketUpcoming},
}

// Modes lists the supported modes in documentation order.
func Modes() []Mode {
	return []Mode{ModeNext, ModeOverdue, ModeUnscheduled, ModeUpcoming}
}

// ParseMode converts s to a Mode. The empty string means ModeNext.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeNext, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", errors.InvalidSelectorStatef("unknown selection mode %q", s)
	}
	return m, nil
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	_, ok := modeBuckets[m]
	return ok
}

func (m Mode) String() string { return string(m) }

// Candidate is a pool question with its authoritative schedule, if any.
type Candidate struct {
	Question *domain.Question
	Schedule *domain.Schedule
}

// Result is the outcome of a selection. A nil Question means nothing
// matched; that is not an error.
type Result struct {
	Question        *domain.Question `json:"question"`
	Schedule        *domain.Schedule `json:"schedule,omitempty"`
	Bucket          Bucket           `json:"bucket"`
	OverdueCount    int              `json:"overdue_count"`
	CandidateCount  int              `json:"candidate_count"`
	MatchedTagNames []string         `json:"matched_tag_names"`
}

// Empty reports whether no question was selected.
func (r Result) Empty() bool { return r.Question == nil }

// bucketOf classifies c relative to now.
func bucketOf(c Candidate, now time.Time) Bucket {
	switch {
	case c.Schedule == nil:
		return BucketUnscheduled
	case c.Schedule.DueAt(now):
		return BucketOverdue
	default:
		return BucketUpcoming
	}
}

// better reports whether a beats b within bucket.
func better(bucket Bucket, a, b Candidate) bool {
	switch bucket {
	case BucketOverdue:
		if !a.Schedule.NextShowAt.Equal(b.Schedule.NextShowAt) {
			return a.Schedule.NextShowAt.After(b.Schedule.NextShowAt)
		}
	case BucketUnscheduled:
		if !a.Question.CreatedAt.Equal(b.Question.CreatedAt) {
			return a.Question.CreatedAt.Before(b.Question.CreatedAt)
		}
	case BucketUpcoming:
		if !a.Schedule.NextShowAt.Equal(b.Schedule.NextShowAt) {
			return a.Schedule.NextShowAt.Before(b.Schedule.NextShowAt)
		}
	}
	return a.Question.ID < b.Question.ID
}

// Select applies mode to candidates as of now. The result does not depend
// on the order of candidates. Candidates without a question are skipped.
func Select(mode Mode, candidates []Candidate, now time.Time) (Result, error) {
	buckets, ok := modeBuckets[mode]
	if !ok {
		return Result{}, errors.InvalidSelectorStatef("unknown selection mode %q", string(mode))
	}

	best := make(map[Bucket]Candidate, 3)
	var res Result
	for _, c := range candidates {
		if c.Question == nil {
			continue
		}
		res.CandidateCount++

		b := bucketOf(c, now)
		if b == BucketOverdue {
			res.OverdueCount++
		}
		if cur, ok := best[b]; !ok || better(b, c, cur) {
			best[b] = c
		}
	}

	for _, b := range buckets {
		if c, ok := best[b]; ok {
			res.Question = c.Question
			res.Schedule = c.Schedule
			res.Bucket = b
			break
		}
	}
	return res, nil
}
