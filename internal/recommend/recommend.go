// Package recommend maps the aggregate shape of a profiled dataset to a
// scored list of chart suggestions with concrete variable bindings.
package recommend

import (
	"fmt"
	"sort"
	"strings"
)

// Column is the minimal profile shape the engine needs: a name and a semantic
// type. Entries with an unrecognized type fall into no bucket.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Priority tiers, coarse quality buckets shown next to the numeric score.
const (
	PriorityBest        = "best"
	PriorityGood        = "good"
	PriorityAlternative = "alternative"
	PriorityInfo        = "info"
	PriorityError       = "error"
)

// Chart is one recommendation: a chart type, a hand-assigned base score, a
// priority tier, human-readable justification, and variable bindings. Each
// bound role comes with a full option list so a UI can offer substitution.
type Chart struct {
	Type        string         `json:"type"`
	Score       float64        `json:"score"`
	Reason      string         `json:"reason"`
	Priority    string         `json:"priority"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	UseCase     string         `json:"use_case"`
	Variables   map[string]any `json:"variables"`
}

// MaxRecommendations caps the returned list.
const MaxRecommendations = 20

// minRecommendations is the threshold below which an info entry is appended.
const minRecommendations = 5

type signals struct {
	numeric       []string
	categorical   []string
	dates         []string
	total         int
	hasTimeSeries bool
}

// rule is one entry of the fixed production table: a predicate over dataset
// signals and a producer emitting fully-formed recommendations.
type rule struct {
	when func(s signals) bool
	emit func(s signals) []Chart
}

// Charts evaluates the rule table against the given profiles and returns the
// recommendations sorted by score descending. Equal scores keep rule-table
// emission order. The result always has at least one entry for a non-empty
// column set and never more than MaxRecommendations.
func Charts(cols []Column, hasTimeSeries bool) []Chart {
	sig := buildSignals(cols, hasTimeSeries)
	if sig.total == 0 {
		// Terminal: the info fallback below must not fire for this case.
		return []Chart{emptyDatasetEntry()}
	}

	var out []Chart
	for _, r := range rules {
		if r.when(sig) {
			out = append(out, r.emit(sig)...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) < minRecommendations {
		out = append(out, limitedDataEntry(sig))
	}
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

func buildSignals(cols []Column, hasTimeSeries bool) signals {
	sig := signals{total: len(cols), hasTimeSeries: hasTimeSeries}
	for _, c := range cols {
		switch c.Type {
		case "numeric":
			sig.numeric = append(sig.numeric, c.Name)
		case "categorical":
			sig.categorical = append(sig.categorical, c.Name)
		case "date":
			sig.dates = append(sig.dates, c.Name)
		}
	}
	return sig
}

// rules is evaluated top to bottom; emission order is the documented tie-break
// for equal scores, so the table order is part of the contract.
var rules = []rule{
	{ // distribution charts for any numeric column
		when: func(s signals) bool { return len(s.numeric) >= 1 },
		emit: func(s signals) []Chart {
			return []Chart{
				{
					Type: "box", Score: 0.90, Priority: PriorityBest,
					Reason:      "Shows median, quartiles and outliers",
					Title:       "Box Plot",
					Description: "Statistical summary",
					UseCase:     "Inspect the distribution and spot outliers",
					Variables: map[string]any{
						"y_axis":          firstOrNil(s.numeric),
						"group_by":        firstOrNil(s.categorical),
						"numeric_options": options(s.numeric),
						"group_options":   options(s.categorical),
					},
				},
				{
					Type: "violin", Score: 0.85, Priority: PriorityGood,
					Reason:      "Shows the density of the distribution in detail",
					Title:       "Violin Plot",
					Description: "Density distribution",
					UseCase:     "More detailed distribution analysis than a box plot",
					Variables: map[string]any{
						"y_axis":  firstOrNil(s.numeric),
						"options": options(s.numeric),
					},
				},
			}
		},
	},
	{ // time-series charts
		when: func(s signals) bool { return s.hasTimeSeries || len(s.dates) > 0 },
		emit: func(s signals) []Chart {
			dateCol := firstOrNil(s.dates)
			return []Chart{
				{
					Type: "line", Score: 0.98, Priority: PriorityBest,
					Reason:      fmt.Sprintf("Shows the trend over time (%s)", nameOrEmpty(s.dates)),
					Title:       "Line Chart",
					Description: "Time-series trend",
					UseCase:     "Track change and trend over time",
					Variables: map[string]any{
						"x_axis":    dateCol,
						"y_axis":    firstOrNil(s.numeric),
						"y_options": options(s.numeric),
					},
				},
				{
					Type: "area", Score: 0.92, Priority: PriorityBest,
					Reason:      "Emphasizes change in volume",
					Title:       "Area Chart",
					Description: "Cumulative trend",
					UseCase:     "Show change in volume over time",
					Variables: map[string]any{
						"x_axis":    dateCol,
						"y_axis":    firstOrNil(s.numeric),
						"y_options": options(s.numeric),
					},
				},
				{
					Type: "multi-line", Score: 0.88, Priority: PriorityGood,
					Reason:      "Compares multiple time series",
					Title:       "Multi-Line Chart",
					Description: "Comparison of several trends",
					UseCase:     "Compare how several variables evolve over time",
					Variables: map[string]any{
						"x_axis":        dateCol,
						"y_axes":        options(take(s.numeric, 3)),
						"group_by":      firstOrNil(s.categorical),
						"y_options":     options(s.numeric),
						"group_options": options(s.categorical),
					},
				},
			}
		},
	},
	{ // pairwise correlation
		when: func(s signals) bool { return len(s.numeric) >= 2 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "scatter", Score: 0.95, Priority: PriorityBest,
				Reason:      fmt.Sprintf("Shows the relationship between two variables (%s vs %s)", s.numeric[0], s.numeric[1]),
				Title:       "Scatter Plot",
				Description: "Correlation analysis",
				UseCase:     "Explore the relationship between two numeric variables",
				Variables: map[string]any{
					"x_axis":        s.numeric[0],
					"y_axis":        s.numeric[1],
					"color_by":      firstOrNil(s.categorical),
					"x_options":     options(s.numeric),
					"y_options":     options(s.numeric),
					"color_options": options(s.categorical),
				},
			}}
		},
	},
	{ // three-way correlation
		when: func(s signals) bool { return len(s.numeric) >= 3 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "bubble", Score: 0.85, Priority: PriorityGood,
				Reason:      fmt.Sprintf("Shows a three-dimensional relationship (%s, %s, %s)", s.numeric[0], s.numeric[1], s.numeric[2]),
				Title:       "Bubble Chart",
				Description: "3D correlation",
				UseCase:     "Show the relationship between three variables",
				Variables: map[string]any{
					"x_axis":        s.numeric[0],
					"y_axis":        s.numeric[1],
					"size":          s.numeric[2],
					"color_by":      firstOrNil(s.categorical),
					"x_options":     options(s.numeric),
					"y_options":     options(s.numeric),
					"size_options":  options(s.numeric),
					"color_options": options(s.categorical),
				},
			}}
		},
	},
	{ // correlation matrix
		when: func(s signals) bool { return len(s.numeric) >= 2 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "heatmap", Score: 0.88, Priority: PriorityGood,
				Reason:      "Shows the correlation across all numeric variables",
				Title:       "Heatmap",
				Description: "Correlation matrix",
				UseCase:     "See the correlation between every pair of variables",
				Variables: map[string]any{
					"columns":     options(take(s.numeric, 10)), // capped for readability
					"all_options": options(s.numeric),
				},
			}}
		},
	},
	{ // categorical comparison
		when: func(s signals) bool { return len(s.categorical) >= 1 },
		emit: func(s signals) []Chart {
			catCol := s.categorical[0]
			return []Chart{
				{
					Type: "bar", Score: 0.95, Priority: PriorityBest,
					Reason:      fmt.Sprintf("Compares categories (%s)", catCol),
					Title:       "Bar Chart",
					Description: "Categorical comparison",
					UseCase:     "See the differences between categories",
					Variables: map[string]any{
						"x_axis":    catCol,
						"y_axis":    firstOrCount(s.numeric),
						"x_options": options(s.categorical),
						"y_options": withCount(s.numeric),
					},
				},
				{
					Type: "horizontal-bar", Score: 0.90, Priority: PriorityGood,
					Reason:      "Ideal for long category labels",
					Title:       "Horizontal Bar Chart",
					Description: "Horizontal bars",
					UseCase:     "Many categories or long labels",
					Variables: map[string]any{
						"y_axis":    catCol,
						"x_axis":    firstOrCount(s.numeric),
						"y_options": options(s.categorical),
						"x_options": withCount(s.numeric),
					},
				},
				{
					Type: "pie", Score: 0.82, Priority: PriorityGood,
					Reason:      fmt.Sprintf("Proportional breakdown of categories (%s)", catCol),
					Title:       "Pie Chart",
					Description: "Percentage breakdown",
					UseCase:     "Share of each category in the total (max 7 categories)",
					Variables: map[string]any{
						"category":         catCol,
						"value":            firstOrCount(s.numeric),
						"category_options": options(s.categorical),
						"value_options":    withCount(s.numeric),
					},
				},
				{
					Type: "donut", Score: 0.80, Priority: PriorityAlternative,
					Reason:      "A modern take on the pie chart",
					Title:       "Donut Chart",
					Description: "Modern pie chart",
					UseCase:     "A sleeker way to show proportions",
					Variables: map[string]any{
						"category":         catCol,
						"value":            firstOrCount(s.numeric),
						"category_options": options(s.categorical),
						"value_options":    withCount(s.numeric),
					},
				},
			}
		},
	},
	{ // categorical x numeric
		when: func(s signals) bool { return len(s.categorical) >= 1 && len(s.numeric) >= 1 },
		emit: func(s signals) []Chart {
			catCol := s.categorical[0]
			subCat := secondOrNil(s.categorical)
			return []Chart{
				{
					Type: "grouped-bar", Score: 0.92, Priority: PriorityBest,
					Reason:      fmt.Sprintf("Grouped comparison by category (%s)", catCol),
					Title:       "Grouped Bar Chart",
					Description: "Grouped bars",
					UseCase:     "Compare across sub-categories",
					Variables: map[string]any{
						"x_axis":        catCol,
						"y_axis":        s.numeric[0],
						"group_by":      subCat,
						"x_options":     options(s.categorical),
						"y_options":     options(s.numeric),
						"group_options": options(s.categorical),
					},
				},
				{
					Type: "stacked-bar", Score: 0.88, Priority: PriorityGood,
					Reason:      "Shows cumulative values",
					Title:       "Stacked Bar Chart",
					Description: "Stacked bars",
					UseCase:     "Show each category's contribution to the total",
					Variables: map[string]any{
						"x_axis":        catCol,
						"y_axis":        s.numeric[0],
						"stack_by":      subCat,
						"x_options":     options(s.categorical),
						"y_options":     options(s.numeric),
						"stack_options": options(s.categorical),
					},
				},
				{
					Type: "boxplot-grouped", Score: 0.85, Priority: PriorityGood,
					Reason:      fmt.Sprintf("Distribution comparison by category (%s)", catCol),
					Title:       "Grouped Box Plot",
					Description: "Grouped box plots",
					UseCase:     "Compare distributions across categories",
					Variables: map[string]any{
						"x_axis":    catCol,
						"y_axis":    s.numeric[0],
						"x_options": options(s.categorical),
						"y_options": options(s.numeric),
					},
				},
			}
		},
	},
	{ // multivariate profile charts
		when: func(s signals) bool { return len(s.numeric) >= 3 },
		emit: func(s signals) []Chart {
			scoreCols := scoreLikeColumns(s.numeric)
			radarMetrics := take(s.numeric, 6)
			radarLabel := take(s.numeric, 5)
			if len(scoreCols) > 0 {
				radarMetrics = take(scoreCols, 6)
				radarLabel = take(scoreCols, 5)
			}
			return []Chart{
				{
					Type: "radar", Score: 0.80, Priority: PriorityAlternative,
					Reason:      fmt.Sprintf("Multi-dimensional comparison (%s)", strings.Join(radarLabel, ", ")),
					Title:       "Radar Chart",
					Description: "Multivariate profile",
					UseCase:     "Compare several metrics at once",
					Variables: map[string]any{
						"metrics":        options(radarMetrics),
						"group_by":       firstOrNil(s.categorical),
						"metric_options": options(s.numeric),
						"group_options":  options(s.categorical),
					},
				},
				{
					Type: "parallel", Score: 0.75, Priority: PriorityAlternative,
					Reason:      "Shows multivariate relationships",
					Title:       "Parallel Coordinates",
					Description: "Parallel axes",
					UseCase:     "Pattern discovery in high-dimensional data",
					Variables: map[string]any{
						"axes":          options(take(s.numeric, 8)),
						"color_by":      firstOrNil(s.categorical),
						"axis_options":  options(s.numeric),
						"color_options": options(s.categorical),
					},
				},
			}
		},
	},
	{ // density
		when: func(s signals) bool { return len(s.numeric) >= 1 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "density", Score: 0.78, Priority: PriorityAlternative,
				Reason:      "Shows the continuous distribution density",
				Title:       "Density Plot",
				Description: "Kernel density estimate",
				UseCase:     "Smoother distribution analysis than a histogram",
				Variables: map[string]any{
					"x_axis":        s.numeric[0],
					"group_by":      firstOrNil(s.categorical),
					"x_options":     options(s.numeric),
					"group_options": options(s.categorical),
				},
			}}
		},
	},
	{ // ridgeline
		when: func(s signals) bool { return len(s.categorical) >= 1 && len(s.numeric) >= 1 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "ridgeline", Score: 0.76, Priority: PriorityAlternative,
				Reason:      fmt.Sprintf("Distribution comparison by category (%s)", s.categorical[0]),
				Title:       "Ridgeline Plot",
				Description: "Stacked density distributions",
				UseCase:     "See the distribution of several groups at once",
				Variables: map[string]any{
					"x_axis":           s.numeric[0],
					"category":         s.categorical[0],
					"x_options":        options(s.numeric),
					"category_options": options(s.categorical),
				},
			}}
		},
	},
	{ // treemap
		when: func(s signals) bool { return len(s.categorical) >= 1 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "treemap", Score: 0.74, Priority: PriorityAlternative,
				Reason:      "Shows hierarchical categorical structure",
				Title:       "Treemap",
				Description: "Hierarchical rectangles",
				UseCase:     "Show category sizes as proportional areas",
				Variables: map[string]any{
					"category":         s.categorical[0],
					"subcategory":      secondOrNil(s.categorical),
					"value":            firstOrCount(s.numeric),
					"category_options": options(s.categorical),
					"value_options":    withCount(s.numeric),
				},
			}}
		},
	},
	{ // sunburst
		when: func(s signals) bool { return len(s.categorical) >= 2 },
		emit: func(s signals) []Chart {
			var level3 any
			if len(s.categorical) >= 3 {
				level3 = s.categorical[2]
			}
			return []Chart{{
				Type: "sunburst", Score: 0.72, Priority: PriorityAlternative,
				Reason:      fmt.Sprintf("Multi-level category structure (%s, %s)", s.categorical[0], s.categorical[1]),
				Title:       "Sunburst Chart",
				Description: "Hierarchical pie chart",
				UseCase:     "Show the proportions of nested categories",
				Variables: map[string]any{
					"level1":           s.categorical[0],
					"level2":           s.categorical[1],
					"level3":           level3,
					"value":            firstOrCount(s.numeric),
					"category_options": options(s.categorical),
					"value_options":    withCount(s.numeric),
				},
			}}
		},
	},
	{ // waterfall
		when: func(s signals) bool {
			return len(s.numeric) >= 1 && (s.hasTimeSeries || len(s.categorical) >= 1)
		},
		emit: func(s signals) []Chart {
			var category any
			if len(s.categorical) > 0 {
				category = s.categorical[0]
			} else if len(s.dates) > 0 {
				category = s.dates[0]
			}
			return []Chart{{
				Type: "waterfall", Score: 0.70, Priority: PriorityAlternative,
				Reason:      "Shows cumulative changes step by step",
				Title:       "Waterfall Chart",
				Description: "Cumulative change analysis",
				UseCase:     "See the total change from start to finish",
				Variables: map[string]any{
					"category":         category,
					"value":            s.numeric[0],
					"category_options": options(append(append([]string{}, s.categorical...), s.dates...)),
					"value_options":    options(s.numeric),
				},
			}}
		},
	},
	{ // funnel
		when: func(s signals) bool { return len(s.categorical) >= 1 && len(s.numeric) >= 1 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "funnel", Score: 0.68, Priority: PriorityAlternative,
				Reason:      "Shows a staged process or conversion funnel",
				Title:       "Funnel Chart",
				Description: "Process stages",
				UseCase:     "Staged processes such as sales funnels or user flows",
				Variables: map[string]any{
					"stage":         s.categorical[0],
					"value":         s.numeric[0],
					"stage_options": options(s.categorical),
					"value_options": options(s.numeric),
				},
			}}
		},
	},
	{ // candlestick
		when: func(s signals) bool { return len(s.numeric) >= 4 && s.hasTimeSeries },
		emit: func(s signals) []Chart {
			ohlc := ohlcColumns(s.numeric)
			return []Chart{{
				Type: "candlestick", Score: 0.66, Priority: PriorityAlternative,
				Reason:      "Shows open, high, low and close values",
				Title:       "Candlestick Chart",
				Description: "OHLC financial chart",
				UseCase:     "Financial data and price movement",
				Variables: map[string]any{
					"date":            firstOrNil(s.dates),
					"open":            ohlc[0],
					"high":            ohlc[1],
					"low":             ohlc[2],
					"close":           ohlc[3],
					"numeric_options": options(s.numeric),
				},
			}}
		},
	},
	{ // 3D scatter
		when: func(s signals) bool { return len(s.numeric) >= 3 },
		emit: func(s signals) []Chart {
			return []Chart{{
				Type: "scatter-3d", Score: 0.64, Priority: PriorityAlternative,
				Reason:      fmt.Sprintf("Three-dimensional relationship (%s, %s, %s)", s.numeric[0], s.numeric[1], s.numeric[2]),
				Title:       "3D Scatter Plot",
				Description: "Three-dimensional distribution",
				UseCase:     "See the relationship between three numeric variables in 3D",
				Variables: map[string]any{
					"x_axis":        s.numeric[0],
					"y_axis":        s.numeric[1],
					"z_axis":        s.numeric[2],
					"color_by":      firstOrNil(s.categorical),
					"x_options":     options(s.numeric),
					"y_options":     options(s.numeric),
					"z_options":     options(s.numeric),
					"color_options": options(s.categorical),
				},
			}}
		},
	},
}

func emptyDatasetEntry() Chart {
	return Chart{
		Type: "error", Score: 0, Priority: PriorityError,
		Reason:      "The dataset is empty - nothing to visualize",
		Title:       "Error",
		Description: "No data found",
		UseCase:     "Please upload a valid data file",
		Variables:   map[string]any{},
	}
}

func limitedDataEntry(s signals) Chart {
	return Chart{
		Type: "info", Score: 0, Priority: PriorityInfo,
		Reason: fmt.Sprintf("The dataset structure (%d numeric, %d categorical columns) offers limited visualization options",
			len(s.numeric), len(s.categorical)),
		Title:       "Info",
		Description: "Add columns of other types to unlock more charts",
		UseCase:     "Example: add a date column to enable time-series charts",
		Variables: map[string]any{
			"suggestion": "Add more numeric or categorical columns to your dataset",
		},
	}
}

// ohlcColumns picks open/high/low/close bindings: columns whose names match
// the usual OHLC vocabulary win, otherwise the first four numeric columns are
// used positionally even if they are unrelated to prices.
func ohlcColumns(numeric []string) [4]any {
	var candidates []string
	for _, name := range numeric {
		lower := strings.ToLower(name)
		for _, kw := range []string{"open", "high", "low", "close", "value"} {
			if strings.Contains(lower, kw) {
				candidates = append(candidates, name)
				break
			}
		}
	}
	pick := numeric
	if len(candidates) >= 4 {
		pick = candidates
	}
	var out [4]any
	for i := 0; i < 4; i++ {
		if i < len(pick) {
			out[i] = pick[i]
		}
	}
	return out
}

func scoreLikeColumns(numeric []string) []string {
	var out []string
	for _, name := range numeric {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "score") || strings.Contains(lower, "rating") {
			out = append(out, name)
		}
	}
	return out
}

func firstOrNil(names []string) any {
	if len(names) > 0 {
		return names[0]
	}
	return nil
}

func secondOrNil(names []string) any {
	if len(names) > 1 {
		return names[1]
	}
	return nil
}

// firstOrCount falls back to the literal "count" aggregate when the dataset
// has no numeric column to bind.
func firstOrCount(names []string) any {
	if len(names) > 0 {
		return names[0]
	}
	return "count"
}

// options always returns a non-nil slice so empty lists marshal as [].
func options(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func withCount(names []string) []string {
	return append([]string{"count"}, names...)
}

func take(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}
	return names
}

func nameOrEmpty(names []string) string {
	if len(names) > 0 {
		return names[0]
	}
	return ""
}
