package codeforces

import (
	"time"

	"github.com/cfboard/cfboard/internal/domain/activity"
	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/domain/student"
)

// Mapper converts API DTOs to domain types.
type Mapper struct{}

// NewMapper creates a new mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ProfileFromDTO maps a user.info element. Absent ratings become 0,
// MaxRating falls back to Rating and an absent rank to "-".
func (m *Mapper) ProfileFromDTO(dto *UserDTO) student.Profile {
	return student.NewProfile(student.Handle(dto.Handle), dto.Rating, dto.MaxRating, dto.Rank)
}

// SubmissionFromDTO maps a user.status element. The problem's contest id
// falls back to the submission's when the API omits it.
func (m *Mapper) SubmissionFromDTO(dto *SubmissionDTO) activity.Submission {
	contestID := dto.Problem.ContestID
	if contestID == 0 {
		contestID = dto.ContestID
	}

	var tags []string
	if len(dto.Problem.Tags) > 0 {
		tags = append(tags, dto.Problem.Tags...)
	}

	return activity.Submission{
		ID:        dto.ID,
		Verdict:   activity.Verdict(dto.Verdict),
		CreatedAt: dto.CreationTimeSeconds,
		Problem: activity.Problem{
			ContestID: contestID,
			Index:     dto.Problem.Index,
			Name:      dto.Problem.Name,
			Rating:    dto.Problem.Rating,
			Tags:      tags,
		},
	}
}

// SubmissionsFromDTOs maps a user.status result, skipping entries without
// a problem index.
func (m *Mapper) SubmissionsFromDTOs(dtos []SubmissionDTO) []activity.Submission {
	subs := make([]activity.Submission, 0, len(dtos))
	for i := range dtos {
		if dtos[i].Problem.Index == "" {
			continue
		}
		subs = append(subs, m.SubmissionFromDTO(&dtos[i]))
	}
	return subs
}

// ContestFromDTO maps a contest.list element.
func (m *Mapper) ContestFromDTO(dto *ContestDTO) contest.Contest {
	var start time.Time
	if dto.StartTimeSeconds > 0 {
		start = time.Unix(dto.StartTimeSeconds, 0).UTC()
	}
	return contest.Contest{
		ID:        dto.ID,
		Name:      dto.Name,
		Phase:     contest.Phase(dto.Phase),
		StartTime: start,
		Duration:  time.Duration(dto.DurationSeconds) * time.Second,
	}
}

// ContestsFromDTOs maps a contest.list result.
func (m *Mapper) ContestsFromDTOs(dtos []ContestDTO) []contest.Contest {
	out := make([]contest.Contest, 0, len(dtos))
	for i := range dtos {
		out = append(out, m.ContestFromDTO(&dtos[i]))
	}
	return out
}

// RatingChangesFromDTOs maps a user.rating result.
func (m *Mapper) RatingChangesFromDTOs(dtos []RatingChangeDTO) []contest.RatingChange {
	out := make([]contest.RatingChange, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, contest.RatingChange{
			ContestID: d.ContestID,
			Rank:      d.Rank,
			OldRating: d.OldRating,
			NewRating: d.NewRating,
		})
	}
	return out
}
