package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/classify/catalog/internal/domain"
	pkgkafka "github.com/classify/catalog/pkg/kafka"
	"github.com/classify/catalog/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func TestProducer_CourseCreated(t *testing.T) {
	pub := new(mockPublisher)
	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, "classify.course.created", mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	p := NewProducer(pub, logger.Discard())
	course := &domain.Course{
		Code:          "CS1530",
		Name:          "Software Engineering",
		Department:    "Computer Science",
		Level:         domain.LevelUndergraduate,
		Prerequisites: []domain.CourseCode{"CS0445"},
	}
	require.NoError(t, p.CourseCreated(context.Background(), course))
	pub.AssertExpectations(t)

	require.NotNil(t, captured)
	assert.Equal(t, "course.created", captured.EventType)
	assert.Equal(t, "CS1530", captured.AggregateID)
	assert.Equal(t, SourceCatalogService, captured.Source)

	var data CourseCreatedData
	require.NoError(t, captured.UnmarshalData(&data))
	assert.Equal(t, []string{"CS0445"}, data.Prerequisites)
}

func TestProducer_ReviewAdded_CarriesCorrelationID(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicReviewAdded, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		return e.CorrelationID == "corr-1" && e.EventType == "course.review_added"
	})).Return(nil)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	err := NewProducer(pub, logger.Discard()).ReviewAdded(ctx, "CS0445", domain.Review{ID: "r1"})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestProducer_ProfessorsUpdated(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicProfessorsUpdated, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		var d ProfessorsUpdatedData
		return e.UnmarshalData(&d) == nil && len(d.Professors) == 1 && d.Professors[0] == "X"
	})).Return(nil)

	err := NewProducer(pub, logger.Discard()).ProfessorsUpdated(context.Background(), "CS0445", []string{"X"})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestProducer_CourseDeleted_PublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicCourseDeleted, mock.Anything).Return(errors.New("broker down"))

	err := NewProducer(pub, logger.Discard()).CourseDeleted(context.Background(), "CS0445")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "course.deleted")
}
