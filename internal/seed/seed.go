// Package seed reads catalog seed documents. A document is a YAML mapping
// from a department group key to the courses in that group:
//
//	cs:
//	  - course_code: CS0445
//	    course_level: Undergraduate
//	    ...
//	    reviews:
//	      - professor: John Ramirez
//	        semester: Spring 2025
//	        ratings: {workload: 3, difficulty: 4, usefulness: 5, overall: 5}
//	        comment: Clear lectures.
//	        timestamp: 2025-05-12T05:00:00Z
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/classify/catalog/internal/domain"
)

//go:embed default.yaml
var defaultDocument []byte

// Group is one top-level key of a seed document.
type Group struct {
	Name    string
	Courses []domain.CourseDraft
}

// Document is a parsed seed document. Groups keep their order in the file.
type Document struct {
	Groups []Group
}

// Drafts flattens every group into one list in document order.
func (d *Document) Drafts() []domain.CourseDraft {
	var out []domain.CourseDraft
	for _, g := range d.Groups {
		out = append(out, g.Courses...)
	}
	return out
}

type courseRecord struct {
	Code          string           `yaml:"course_code"`
	Level         string           `yaml:"course_level"`
	Name          string           `yaml:"course_name"`
	Department    string           `yaml:"department"`
	Credits       int              `yaml:"credits"`
	Description   string           `yaml:"description"`
	Prerequisites []string         `yaml:"prerequisites"`
	Professors    []string         `yaml:"professors"`
	Usefulness    usefulnessRecord `yaml:"usefulness"`
	Reviews       []reviewRecord   `yaml:"reviews"`
}

type usefulnessRecord struct {
	RequiredFor []string `yaml:"required_for"`
	GenEd       *string  `yaml:"gen_ed"`
	Elective    bool     `yaml:"elective"`
}

type reviewRecord struct {
	Professor string        `yaml:"professor"`
	Semester  string        `yaml:"semester"`
	Ratings   ratingsRecord `yaml:"ratings"`
	Comment   string        `yaml:"comment"`
	Timestamp *time.Time    `yaml:"timestamp"`
}

type ratingsRecord struct {
	Workload   int `yaml:"workload"`
	Difficulty int `yaml:"difficulty"`
	Usefulness int `yaml:"usefulness"`
	Overall    int `yaml:"overall"`
}

func (c courseRecord) draft() domain.CourseDraft {
	reviews := make([]domain.ReviewDraft, 0, len(c.Reviews))
	for _, r := range c.Reviews {
		reviews = append(reviews, domain.ReviewDraft{
			Professor: r.Professor,
			Semester:  r.Semester,
			Ratings: domain.Ratings{
				Workload:   r.Ratings.Workload,
				Difficulty: r.Ratings.Difficulty,
				Usefulness: r.Ratings.Usefulness,
				Overall:    r.Ratings.Overall,
			},
			Comment:   r.Comment,
			CreatedAt: r.Timestamp,
		})
	}
	return domain.CourseDraft{
		Code:          c.Code,
		Level:         domain.Level(c.Level),
		Name:          c.Name,
		Department:    c.Department,
		Credits:       c.Credits,
		Description:   c.Description,
		Prerequisites: c.Prerequisites,
		Professors:    c.Professors,
		Usefulness: domain.UsefulnessDraft{
			RequiredFor: c.Usefulness.RequiredFor,
			GenEd:       c.Usefulness.GenEd,
			Elective:    c.Usefulness.Elective,
		},
		Reviews: reviews,
	}
}

// Parse reads a seed document. Drafts are not validated here; the catalog
// validates them on insert.
func Parse(r io.Reader) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("parse seed document: %w", err)
	}
	if len(root.Content) == 0 {
		return &Document{}, nil
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse seed document: line %d: expected a mapping of groups", top.Line)
	}

	doc := &Document{Groups: make([]Group, 0, len(top.Content)/2)}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]

		var records []courseRecord
		if err := value.Decode(&records); err != nil {
			return nil, fmt.Errorf("parse seed group %q: %w", key.Value, err)
		}

		g := Group{Name: key.Value, Courses: make([]domain.CourseDraft, 0, len(records))}
		for _, rec := range records {
			g.Courses = append(g.Courses, rec.draft())
		}
		doc.Groups = append(doc.Groups, g)
	}
	return doc, nil
}

// LoadFile parses the seed document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Default returns the seed document built into the binary.
func Default() (*Document, error) {
	return Parse(bytes.NewReader(defaultDocument))
}
