package admin

import (
	"strconv"

	"topicspin-api/internal/models"
)

type Stats struct {
	Total             int            `json:"total"`
	ByChannel         map[string]int `json:"byChannel"`
	ByCategory        map[string]int `json:"byCategory"`
	ByRoom            map[string]int `json:"byRoom"`
	UniqueTopics      int            `json:"uniqueTopics"`
	TopicDistribution map[string]int `json:"topicDistribution"`
}

// ComputeStats counts list. Every known channel, category and room is present
// with zero when unused; unknown values are counted under their own key.
func ComputeStats(list []models.Assignment, rooms []int) Stats {
	s := Stats{
		Total:             len(list),
		ByChannel:         map[string]int{string(models.ChannelBanca): 0, string(models.ChannelRetail): 0},
		ByCategory:        map[string]int{string(models.CategoryRookie): 0, string(models.CategoryVintage): 0},
		ByRoom:            make(map[string]int, len(rooms)),
		TopicDistribution: map[string]int{},
	}
	for _, r := range rooms {
		s.ByRoom[strconv.Itoa(r)] = 0
	}
	for _, a := range list {
		if a.Channel != "" {
			s.ByChannel[string(a.Channel)]++
		}
		if a.Category != "" {
			s.ByCategory[string(a.Category)]++
		}
		if a.Room > 0 {
			s.ByRoom[strconv.Itoa(a.Room)]++
		}
		if a.Topic != "" {
			s.TopicDistribution[a.Topic]++
		}
	}
	s.UniqueTopics = len(s.TopicDistribution)
	return s
}
