package calview

// Toolbar is the engine's header layout.
type Toolbar struct {
	Left   string `json:"left"`
	Center string `json:"center"`
	Right  string `json:"right"`
}

// EngineConfig is handed to the engine once at initialization. Field names
// follow the engine's own option names so the struct can be serialized
// straight into the page.
type EngineConfig struct {
	InitialView   string            `json:"initialView"`
	HeaderToolbar Toolbar           `json:"headerToolbar"`
	Locale        string            `json:"locale"`
	FirstDay      int               `json:"firstDay"`
	ButtonText    map[string]string `json:"buttonText"`
	WeekText      string            `json:"weekText"`
	AllDayText    string            `json:"allDayText"`
	NoEventsText  string            `json:"noEventsText"`
}

// DefaultEngineConfig is the French month view used by both page variants.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InitialView: "dayGridMonth",
		HeaderToolbar: Toolbar{
			Left:   "prev,next today",
			Center: "title",
			Right:  "dayGridMonth,timeGridWeek,timeGridDay",
		},
		Locale:   "fr",
		FirstDay: 1,
		ButtonText: map[string]string{
			"today": "Aujourd’hui",
			"month": "Mois",
			"week":  "Semaine",
			"day":   "Jour",
			"list":  "Liste",
		},
		WeekText:     "Sem.",
		AllDayText:   "Toute la journée",
		NoEventsText: "Aucun événement à afficher",
	}
}

// CompactEngineConfig is the narrow-screen layout: list view first and a
// shorter toolbar.
func CompactEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.InitialView = "listMonth"
	cfg.HeaderToolbar = Toolbar{
		Left:   "prev,next",
		Center: "title",
		Right:  "listMonth,dayGridMonth",
	}
	return cfg
}
