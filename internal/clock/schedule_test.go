package clock

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ScheduleTestSuite struct {
	suite.Suite
}

func TestScheduleSuite(t *testing.T) {
	suite.Run(t, new(ScheduleTestSuite))
}

func (suite *ScheduleTestSuite) TestEvery() {
	s, err := Every(time.Hour)
	suite.Require().NoError(err)

	t := time.Date(2024, 1, 2, 9, 35, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), s.Next(t))
	suite.Equal(time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC), s.Next(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)))
	suite.Equal("every 1h0m0s", s.String())

	_, err = Every(0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSchedule))
}

func (suite *ScheduleTestSuite) TestDailyAt() {
	s, err := DailyAt(16, 0)
	suite.Require().NoError(err)

	morning := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC), s.Next(morning))
	suite.Equal(time.Date(2024, 1, 3, 16, 0, 0, 0, time.UTC), s.Next(time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)))
	suite.Equal("daily at 16:00", s.String())
}

func (suite *ScheduleTestSuite) TestDailyAtWeekdays() {
	s, err := DailyAt(16, 0, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	suite.Require().NoError(err)

	friday := time.Date(2024, 1, 5, 17, 0, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 1, 8, 16, 0, 0, 0, time.UTC), s.Next(friday))
}

func (suite *ScheduleTestSuite) TestDailyAtInvalid() {
	_, err := DailyAt(24, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSchedule))

	_, err = DailyAt(9, 60)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSchedule))

	_, err = DailyAt(9, 30, time.Weekday(9))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSchedule))
}

func (suite *ScheduleTestSuite) TestTimerCollapsesMissedFires() {
	s, err := Every(time.Minute)
	suite.Require().NoError(err)

	var events []TimerEvent

	tm := &timer{schedule: s, callback: func(_ context.Context, event TimerEvent) error {
		events = append(events, event)

		return nil
	}, next: time.Time{}}

	start := time.Date(2024, 1, 2, 9, 35, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tick := engine.Tick{Index: i, Time: start.Add(time.Duration(i) * 5 * time.Minute), Feeds: nil}
		suite.Require().NoError(tm.check(context.Background(), tick))
	}

	suite.Require().Len(events, 3)
	suite.Equal(start, events[0].Scheduled)
	suite.Equal(start.Add(time.Minute), events[1].Scheduled)
	suite.Equal(start.Add(5*time.Minute), events[1].Tick.Time)
	suite.Equal(start.Add(6*time.Minute), events[2].Scheduled)

	tm.reset()
	suite.True(tm.next.IsZero())
}
