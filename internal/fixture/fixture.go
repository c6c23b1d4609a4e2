// Package fixture loads YAML descriptions of users' tags, questions and
// schedules into a store. Times are written relative to a reference
// clock so that a fixture keeps the same overdue/upcoming shape whenever
// it is applied.
//
//	users:
//	  - id: alice
//	    tags:
//	      - {id: math, name: Math}
//	      - {id: algebra, name: Algebra}
//	    edges:
//	      - {parent: math, child: algebra}
//	    questions:
//	      - id: q1
//	        body: "2x = 4, x = ?"
//	        created: -3d
//	        tags: [algebra]
//	        schedules:
//	          - {created: -1d, next: -2h}
package fixture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/id"
	"github.com/listenupapp/recall-server/internal/store"
)

// Fixture is a parsed fixture document.
type Fixture struct {
	Users []User `yaml:"users"`
}

// User groups everything one user owns.
type User struct {
	ID        string     `yaml:"id"`
	Tags      []Tag      `yaml:"tags"`
	Edges     []Edge     `yaml:"edges"`
	Questions []Question `yaml:"questions"`
}

// Tag is a fixture tag. An empty ID is generated.
type Tag struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Edge is a parent -> child lineage edge between fixture tag ids.
type Edge struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

// Question is a fixture question with its tag links and schedule history.
type Question struct {
	ID           string     `yaml:"id"`
	Body         string     `yaml:"body"`
	AnswerID     string     `yaml:"answer_id"`
	Created      string     `yaml:"created"`
	Tags         []string   `yaml:"tags"`
	DisabledTags []string   `yaml:"disabled_tags"`
	Schedules    []Schedule `yaml:"schedules"`
}

// Schedule is one schedule record. Created defaults to the reference
// time; Next is required.
type Schedule struct {
	ID       string `yaml:"id"`
	Created  string `yaml:"created"`
	Next     string `yaml:"next"`
	Interval int    `yaml:"interval"`
	Unit     string `yaml:"unit"`
}

// Stats counts the records written by Apply.
type Stats struct {
	Users     int
	Tags      int
	Edges     int
	Questions int
	Links     int
	Schedules int
}

// Load reads and parses the fixture file at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a fixture document. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	for i, u := range f.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("users[%d]: missing id", i)
		}
	}
	return &f, nil
}

// Apply writes the fixture through w, resolving relative times against now.
// Fixture tag ids are used verbatim when present, so edges and question
// links may refer to them.
func (f *Fixture) Apply(ctx context.Context, w store.Writer, now time.Time) (Stats, error) {
	var st Stats
	for i := range f.Users {
		if err := f.Users[i].apply(ctx, w, now, &st); err != nil {
			return st, fmt.Errorf("users[%d] (%s): %w", i, f.Users[i].ID, err)
		}
		st.Users++
	}
	return st, nil
}

func (u *User) apply(ctx context.Context, w store.Writer, now time.Time, st *Stats) error {
	for i, ft := range u.Tags {
		tag := &domain.Tag{Name: ft.Name, UserID: u.ID}
		tag.ID = orGenerate(ft.ID, id.PrefixTag)
		tag.InitTimestamps(now)
		if err := w.CreateTag(ctx, tag); err != nil {
			return fmt.Errorf("tags[%d]: %w", i, err)
		}
		st.Tags++
	}

	for i, e := range u.Edges {
		err := w.CreateTagLineage(ctx, domain.TagLineage{UserID: u.ID, ParentID: e.Parent, ChildID: e.Child})
		if err != nil {
			return fmt.Errorf("edges[%d]: %w", i, err)
		}
		st.Edges++
	}

	for i := range u.Questions {
		if err := u.Questions[i].apply(ctx, w, u.ID, now, st); err != nil {
			return fmt.Errorf("questions[%d]: %w", i, err)
		}
	}
	return nil
}

func (fq *Question) apply(ctx context.Context, w store.Writer, userID string, now time.Time, st *Stats) error {
	created, err := ResolveTime(fq.Created, now)
	if err != nil {
		return fmt.Errorf("created: %w", err)
	}

	q := &domain.Question{UserID: userID, Body: fq.Body, AnswerID: fq.AnswerID}
	q.ID = orGenerate(fq.ID, id.PrefixQuestion)
	q.InitTimestamps(created)
	if err := w.CreateQuestion(ctx, q); err != nil {
		return err
	}
	st.Questions++

	link := func(tagID string, enabled bool) error {
		if err := w.SetQuestionTag(ctx, domain.QuestionTag{QuestionID: q.ID, TagID: tagID, Enabled: enabled}); err != nil {
			return fmt.Errorf("tag %s: %w", tagID, err)
		}
		st.Links++
		return nil
	}
	for _, tagID := range fq.Tags {
		if err := link(tagID, true); err != nil {
			return err
		}
	}
	for _, tagID := range fq.DisabledTags {
		if err := link(tagID, false); err != nil {
			return err
		}
	}

	for i, fs := range fq.Schedules {
		sch, err := fs.build(userID, q.ID, now)
		if err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
		if err := w.CreateSchedule(ctx, sch); err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
		st.Schedules++
	}
	return nil
}

func (fs Schedule) build(userID, questionID string, now time.Time) (*domain.Schedule, error) {
	if fs.Next == "" {
		return nil, fmt.Errorf("next: required")
	}
	created, err := ResolveTime(fs.Created, now)
	if err != nil {
		return nil, fmt.Errorf("created: %w", err)
	}
	next, err := ResolveTime(fs.Next, now)
	if err != nil {
		return nil, fmt.Errorf("next: %w", err)
	}

	interval := fs.Interval
	if interval == 0 {
		interval = 1
	}
	unit := domain.IntervalUnit(fs.Unit)
	if unit == "" {
		unit = domain.IntervalDays
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("unit: unknown interval unit %q", fs.Unit)
	}

	return &domain.Schedule{
		ID:           orGenerate(fs.ID, id.PrefixSchedule),
		UserID:       userID,
		QuestionID:   questionID,
		CreatedAt:    created,
		NextShowAt:   next,
		Interval:     interval,
		IntervalUnit: unit,
	}, nil
}

func orGenerate(v, prefix string) string {
	if v != "" {
		return v
	}
	return id.MustGenerate(prefix)
}
