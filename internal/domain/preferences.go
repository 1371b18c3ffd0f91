package domain

import "slices"

// DefaultTopic is used as the search query when none is given.
const DefaultTopic = "mobile"

// DefaultTopics is the fixed part of the topic catalog.
var DefaultTopics = []string{"mobile", "iOS", "Android", "React Native"}

// Preferences is the user's notification settings.
type Preferences struct {
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	SelectedTopics       []string `json:"selectedTopics"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		NotificationsEnabled: false,
		SelectedTopics:       []string{DefaultTopic},
	}
}

func (p Preferences) HasTopic(topic string) bool {
	return slices.Contains(p.SelectedTopics, topic)
}

// Clone returns a copy that shares no memory with p.
func (p Preferences) Clone() Preferences {
	return Preferences{
		NotificationsEnabled: p.NotificationsEnabled,
		SelectedTopics:       slices.Clone(p.SelectedTopics),
	}
}

// TopicCatalog lists the default topics followed by any custom selected ones.
func (p Preferences) TopicCatalog() []string {
	catalog := slices.Clone(DefaultTopics)
	for _, t := range p.SelectedTopics {
		if !slices.Contains(catalog, t) {
			catalog = append(catalog, t)
		}
	}
	return catalog
}
