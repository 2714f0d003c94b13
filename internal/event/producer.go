package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classify/catalog/internal/domain"
	pkgkafka "github.com/classify/catalog/pkg/kafka"
	"github.com/classify/catalog/pkg/logger"
)

// Kafka topics for catalog domain events.
var (
	TopicCourseCreated     = pkgkafka.Topic("course", "created")
	TopicReviewAdded       = pkgkafka.Topic("course", "review_added")
	TopicProfessorsUpdated = pkgkafka.Topic("course", "professors_updated")
	TopicCourseDeleted     = pkgkafka.Topic("course", "deleted")
)

const (
	AggregateTypeCourse  = "course"
	SourceCatalogService = "catalog-service"
)

// CourseCreatedData is the payload of a course.created event.
type CourseCreatedData struct {
	CourseCode    string   `json:"course_code"`
	CourseName    string   `json:"course_name"`
	Department    string   `json:"department"`
	Level         string   `json:"course_level"`
	Prerequisites []string `json:"prerequisites"`
	ReviewCount   int      `json:"review_count"`
}

// ReviewAddedData is the payload of a course.review_added event.
type ReviewAddedData struct {
	CourseCode string        `json:"course_code"`
	Review     domain.Review `json:"review"`
}

// ProfessorsUpdatedData is the payload of a course.professors_updated event.
type ProfessorsUpdatedData struct {
	CourseCode string   `json:"course_code"`
	Professors []string `json:"professors"`
}

// CourseDeletedData is the payload of a course.deleted event.
type CourseDeletedData struct {
	CourseCode string `json:"course_code"`
}

// Publisher is the part of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a catalog event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// CourseCreated publishes a course.created event.
func (p *Producer) CourseCreated(ctx context.Context, c *domain.Course) error {
	return p.publish(ctx, TopicCourseCreated, "course.created", c.Code, CourseCreatedData{
		CourseCode:    c.Code.String(),
		CourseName:    c.Name,
		Department:    c.Department,
		Level:         string(c.Level),
		Prerequisites: domain.Strings(c.Prerequisites),
		ReviewCount:   len(c.Reviews),
	})
}

// ReviewAdded publishes a course.review_added event.
func (p *Producer) ReviewAdded(ctx context.Context, code domain.CourseCode, r domain.Review) error {
	return p.publish(ctx, TopicReviewAdded, "course.review_added", code, ReviewAddedData{
		CourseCode: code.String(),
		Review:     r,
	})
}

// ProfessorsUpdated publishes a course.professors_updated event.
func (p *Producer) ProfessorsUpdated(ctx context.Context, code domain.CourseCode, professors []string) error {
	return p.publish(ctx, TopicProfessorsUpdated, "course.professors_updated", code, ProfessorsUpdatedData{
		CourseCode: code.String(),
		Professors: professors,
	})
}

// CourseDeleted publishes a course.deleted event.
func (p *Producer) CourseDeleted(ctx context.Context, code domain.CourseCode) error {
	return p.publish(ctx, TopicCourseDeleted, "course.deleted", code, CourseDeletedData{
		CourseCode: code.String(),
	})
}

func (p *Producer) publish(ctx context.Context, topic, eventType string, code domain.CourseCode, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, code.String(), AggregateTypeCourse, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.InfoContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("course_code", code.String()),
		slog.String("event_id", evt.EventID),
	)
	return nil
}
