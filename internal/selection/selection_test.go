package selection

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/errors"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func question(id string, created time.Time) *domain.Question {
	q := &domain.Question{UserID: "alice"}
	q.ID = id
	q.InitTimestamps(created)
	return q
}

func scheduled(q *domain.Question, next time.Time) Candidate {
	return Candidate{
		Question: q,
		Schedule: &domain.Schedule{
			ID:         "sch-" + q.ID,
			UserID:     q.UserID,
			QuestionID: q.ID,
			CreatedAt:  q.CreatedAt,
			NextShowAt: next,
		},
	}
}

func unscheduled(q *domain.Question) Candidate {
	return Candidate{Question: q}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeNext},
		{"next", ModeNext},
		{"overdue", ModeOverdue},
		{"unscheduled", ModeUnscheduled},
		{"upcoming", ModeUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"NEXT", "random", " next"} {
		_, err := ParseMode(bad)
		assert.True(t, errors.Is(err, errors.ErrInvalidSelectorState), "mode %q", bad)
	}
}

func TestModes_AllValid(t *testing.T) {
	for _, m := range Modes() {
		assert.True(t, m.Valid(), m.String())
	}
	assert.False(t, Mode("").Valid())
}

func TestSelect_UnknownMode(t *testing.T) {
	_, err := Select(Mode("sideways"), nil, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSelectorState))
}

func TestSelect_Empty(t *testing.T) {
	res, err := Select(ModeNext, nil, now)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, BucketNone, res.Bucket)
	assert.Zero(t, res.CandidateCount)
}

func TestSelect_UnscheduledOldestWins(t *testing.T) {
	q1 := question("q1", now.Add(-48*time.Hour))
	q2 := question("q2", now.Add(-24*time.Hour))

	res, err := Select(ModeNext, []Candidate{unscheduled(q2), unscheduled(q1)}, now)
	require.NoError(t, err)
	assert.Equal(t, "q1", res.Question.ID)
	assert.Equal(t, BucketUnscheduled, res.Bucket)
	assert.Nil(t, res.Schedule)
	assert.Equal(t, 2, res.CandidateCount)
	assert.Zero(t, res.OverdueCount)
}

func TestSelect_OverdueBeatsUnscheduled(t *testing.T) {
	q1 := question("q1", now.Add(-48*time.Hour))
	q2 := question("q2", now.Add(-24*time.Hour))

	res, err := Select(ModeNext, []Candidate{
		scheduled(q1, now.Add(-24*time.Hour)),
		unscheduled(q2),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "q1", res.Question.ID)
	assert.Equal(t, BucketOverdue, res.Bucket)
	assert.Equal(t, 1, res.OverdueCount)
}

func TestSelect_FreshestOverdueWins(t *testing.T) {
	q1 := question("q1", now.Add(-48*time.Hour))
	q2 := question("q2", now.Add(-24*time.Hour))

	res, err := Select(ModeNext, []Candidate{
		scheduled(q1, now.Add(-24*time.Hour)),
		scheduled(q2, now.Add(-2*time.Hour)),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "q2", res.Question.ID)
	assert.Equal(t, 2, res.OverdueCount)
}

func TestSelect_SoonestUpcomingWins(t *testing.T) {
	q1 := question("q1", now.Add(-48*time.Hour))
	q2 := question("q2", now.Add(-24*time.Hour))

	res, err := Select(ModeNext, []Candidate{
		scheduled(q1, now.Add(2*time.Minute)),
		scheduled(q2, now.Add(time.Minute)),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "q2", res.Question.ID)
	assert.Equal(t, BucketUpcoming, res.Bucket)
	assert.Zero(t, res.OverdueCount)
}

func TestSelect_DueExactlyNowIsOverdue(t *testing.T) {
	q1 := question("q1", now.Add(-time.Hour))

	res, err := Select(ModeNext, []Candidate{scheduled(q1, now)}, now)
	require.NoError(t, err)
	assert.Equal(t, BucketOverdue, res.Bucket)
}

func TestSelect_TieBreakLowestID(t *testing.T) {
	created := now.Add(-time.Hour)
	qa := question("q-a", created)
	qb := question("q-b", created)

	tests := []struct {
		name  string
		mode  Mode
		cands []Candidate
	}{
		{"overdue", ModeOverdue, []Candidate{scheduled(qb, now.Add(-time.Minute)), scheduled(qa, now.Add(-time.Minute))}},
		{"unscheduled", ModeUnscheduled, []Candidate{unscheduled(qb), unscheduled(qa)}},
		{"upcoming", ModeUpcoming, []Candidate{scheduled(qb, now.Add(time.Minute)), scheduled(qa, now.Add(time.Minute))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Select(tt.mode, tt.cands, now)
			require.NoError(t, err)
			assert.Equal(t, "q-a", res.Question.ID)
		})
	}
}

func TestSelect_ModeRestrictsBucket(t *testing.T) {
	over := question("q-over", now.Add(-3*time.Hour))
	fresh := question("q-fresh", now.Add(-2*time.Hour))
	later := question("q-later", now.Add(-time.Hour))

	cands := []Candidate{
		scheduled(over, now.Add(-time.Hour)),
		unscheduled(fresh),
		scheduled(later, now.Add(time.Hour)),
	}

	tests := []struct {
		mode   Mode
		want   string
		bucket Bucket
	}{
		{ModeNext, "q-over", BucketOverdue},
		{ModeOverdue, "q-over", BucketOverdue},
		{ModeUnscheduled, "q-fresh", BucketUnscheduled},
		{ModeUpcoming, "q-later", BucketUpcoming},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			res, err := Select(tt.mode, cands, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Question.ID)
			assert.Equal(t, tt.bucket, res.Bucket)
			assert.Equal(t, 3, res.CandidateCount)
			assert.Equal(t, 1, res.OverdueCount)
		})
	}

	res, err := Select(ModeOverdue, cands[1:], now)
	require.NoError(t, err)
	assert.True(t, res.Empty(), "overdue mode never falls back")
}

func TestSelect_SkipsNilQuestions(t *testing.T) {
	res, err := Select(ModeNext, []Candidate{{}, unscheduled(question("q1", now))}, now)
	require.NoError(t, err)
	assert.Equal(t, "q1", res.Question.ID)
	assert.Equal(t, 1, res.CandidateCount)
}

func drawCandidates(t *rapid.T) []Candidate {
	n := rapid.IntRange(0, 10).Draw(t, "n")
	cands := make([]Candidate, n)
	for i := range cands {
		// Small offset ranges make timestamp ties likely.
		created := now.Add(time.Duration(rapid.IntRange(-5, 0).Draw(t, "created")) * time.Hour)
		q := question(fmt.Sprintf("q-%02d", i), created)
		if rapid.Bool().Draw(t, "scheduled") {
			next := now.Add(time.Duration(rapid.IntRange(-3, 3).Draw(t, "next")) * time.Hour)
			cands[i] = scheduled(q, next)
		} else {
			cands[i] = unscheduled(q)
		}
	}
	return cands
}

func TestSelect_OrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cands := drawCandidates(t)
		shuffled := rapid.Permutation(cands).Draw(t, "shuffled")
		mode := rapid.SampledFrom(Modes()).Draw(t, "mode")

		a, err := Select(mode, cands, now)
		require.NoError(t, err)
		b, err := Select(mode, shuffled, now)
		require.NoError(t, err)

		require.Equal(t, a.Bucket, b.Bucket)
		if a.Question == nil {
			require.Nil(t, b.Question)
			return
		}
		require.Equal(t, a.Question.ID, b.Question.ID)
	})
}

func TestSelect_NextPicksHighestPriorityBucket(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cands := drawCandidates(t)
		res, err := Select(ModeNext, cands, now)
		require.NoError(t, err)

		var overdue, unsched, upcoming int
		for _, c := range cands {
			switch bucketOf(c, now) {
			case BucketOverdue:
				overdue++
			case BucketUnscheduled:
				unsched++
			case BucketUpcoming:
				upcoming++
			}
		}
		require.Equal(t, len(cands), res.CandidateCount)
		require.Equal(t, overdue, res.OverdueCount)

		switch {
		case overdue > 0:
			require.Equal(t, BucketOverdue, res.Bucket)
			for _, c := range cands {
				if bucketOf(c, now) == BucketOverdue {
					require.False(t, c.Schedule.NextShowAt.After(res.Schedule.NextShowAt))
				}
			}
		case unsched > 0:
			require.Equal(t, BucketUnscheduled, res.Bucket)
			for _, c := range cands {
				if c.Schedule == nil {
					require.False(t, c.Question.CreatedAt.Before(res.Question.CreatedAt))
				}
			}
		case upcoming > 0:
			require.Equal(t, BucketUpcoming, res.Bucket)
			for _, c := range cands {
				require.False(t, c.Schedule.NextShowAt.Before(res.Schedule.NextShowAt))
			}
		default:
			require.True(t, res.Empty())
		}
	})
}
