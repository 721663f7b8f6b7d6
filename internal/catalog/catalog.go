package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"luminexus/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ItemKind is the slot a shop item occupies once equipped
type ItemKind string

const (
	KindTheme  ItemKind = "theme"
	KindAvatar ItemKind = "avatar"
	KindBoost  ItemKind = "boost"
)

// Metric names a counter of the progress record an achievement watches
type Metric string

const (
	MetricStoriesCompleted    Metric = "stories_completed"
	MetricQuizzesCompleted    Metric = "quizzes_completed"
	MetricPerfectQuizzes      Metric = "perfect_quizzes"
	MetricGamesPlayed         Metric = "games_played"
	MetricGamesWon            Metric = "games_won"
	MetricActivitiesCompleted Metric = "activities_completed"
	MetricItemsOwned          Metric = "items_owned"
	MetricLevel               Metric = "level"
	MetricTotalPoints         Metric = "total_points"
)

// Valid reports whether the metric is one the catalog can evaluate
func (m Metric) Valid() bool {
	switch m {
	case MetricStoriesCompleted, MetricQuizzesCompleted, MetricPerfectQuizzes,
		MetricGamesPlayed, MetricGamesWon, MetricActivitiesCompleted,
		MetricItemsOwned, MetricLevel, MetricTotalPoints:
		return true
	}
	return false
}

// Item is a purchasable shop item
type Item struct {
	ID   string   `yaml:"id" json:"id"`
	Name string   `yaml:"name" json:"name"`
	Kind ItemKind `yaml:"kind" json:"kind"`
	Cost int      `yaml:"cost" json:"cost"`
}

// Achievement unlocks once Metric reaches Threshold
type Achievement struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Metric      Metric `yaml:"metric" json:"metric"`
	Threshold   int    `yaml:"threshold" json:"threshold"`
}

// Catalog is the static shop and achievement table
type Catalog struct {
	items        []Item
	achievements []Achievement
	itemIndex    map[string]int
	achIndex     map[string]int
}

type catalogFile struct {
	Items        []Item        `yaml:"items"`
	Achievements []Achievement `yaml:"achievements"`
}

// Default returns the catalog embedded in the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		items:        file.Items,
		achievements: file.Achievements,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects duplicate ids, unknown kinds and metrics, and non-positive numbers.
// It rebuilds the lookup indexes, so it may be called more than once.
func (c *Catalog) Validate() error {
	c.itemIndex = make(map[string]int, len(c.items))
	c.achIndex = make(map[string]int, len(c.achievements))

	for i, item := range c.items {
		if item.ID == "" {
			return fmt.Errorf("item %d: id is required", i)
		}
		if _, dup := c.itemIndex[item.ID]; dup {
			return fmt.Errorf("item %s: duplicate id", item.ID)
		}
		if item.ID == models.DefaultSelection {
			return fmt.Errorf("item %s: id is reserved", item.ID)
		}
		switch item.Kind {
		case KindTheme, KindAvatar, KindBoost:
		default:
			return fmt.Errorf("item %s: unknown kind %q", item.ID, item.Kind)
		}
		if item.Cost <= 0 {
			return fmt.Errorf("item %s: cost must be positive", item.ID)
		}
		c.itemIndex[item.ID] = i
	}

	for i, ach := range c.achievements {
		if ach.ID == "" {
			return fmt.Errorf("achievement %d: id is required", i)
		}
		if _, dup := c.achIndex[ach.ID]; dup {
			return fmt.Errorf("achievement %s: duplicate id", ach.ID)
		}
		if !ach.Metric.Valid() {
			return fmt.Errorf("achievement %s: unknown metric %q", ach.ID, ach.Metric)
		}
		if ach.Threshold <= 0 {
			return fmt.Errorf("achievement %s: threshold must be positive", ach.ID)
		}
		c.achIndex[ach.ID] = i
	}
	return nil
}

// Item looks up a shop item by id
func (c *Catalog) Item(id string) (Item, bool) {
	idx, ok := c.itemIndex[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Items returns the shop items in catalog order
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Achievement looks up an achievement by id
func (c *Catalog) Achievement(id string) (Achievement, bool) {
	idx, ok := c.achIndex[id]
	if !ok {
		return Achievement{}, false
	}
	return c.achievements[idx], true
}

// Achievements returns the achievements in catalog order
func (c *Catalog) Achievements() []Achievement {
	return append([]Achievement(nil), c.achievements...)
}

// Met reports whether the record satisfies the achievement rule
func (a Achievement) Met(record *models.ProgressRecord) bool {
	value, err := metricValue(a.Metric, record)
	if err != nil {
		return false
	}
	return value >= a.Threshold
}

// Newly returns the achievements the record meets but has not unlocked yet
func (c *Catalog) Newly(record *models.ProgressRecord) []Achievement {
	var met []Achievement
	for _, ach := range c.achievements {
		if record.UnlockedAchievements.Has(ach.ID) {
			continue
		}
		if ach.Met(record) {
			met = append(met, ach)
		}
	}
	return met
}

func metricValue(metric Metric, r *models.ProgressRecord) (int, error) {
	switch metric {
	case MetricStoriesCompleted:
		return len(r.StoriesCompleted), nil
	case MetricQuizzesCompleted:
		return len(r.QuizzesCompleted), nil
	case MetricPerfectQuizzes:
		return r.PerfectQuizzes(), nil
	case MetricGamesPlayed:
		return r.GamesPlayed, nil
	case MetricGamesWon:
		return r.GamesWon, nil
	case MetricActivitiesCompleted:
		return len(r.ActivitiesCompleted), nil
	case MetricItemsOwned:
		return len(r.OwnedItems), nil
	case MetricLevel:
		return r.Level, nil
	case MetricTotalPoints:
		return r.TotalPoints, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}
