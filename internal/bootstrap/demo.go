package bootstrap

import "ms-events/internal/models"

// DemoEvents is the fixed dataset seeded into an empty store when no manifest is published
func DemoEvents() []models.Event {
	return []models.Event{
		{
			ID:          "demo-tech-summit",
			Title:       "Future of Tech Summit",
			Description: "A full day of talks on distributed systems, developer tooling and applied machine learning.",
			Date:        "2026-11-12T09:00:00Z",
			Location:    "Moscone Center, San Francisco",
			Capacity:    500,
			Bookings:    342,
			Price:       149,
			Image:       "https://images.unsplash.com/photo-1540575467063-178a50c2df87",
			Status:      models.EventStatusPublished,
			Tags:        []string{"technology", "conference", "networking"},
			Agenda: []models.AgendaItem{
				{Time: "09:00", Title: "Registration & Coffee", Description: "Pick up your badge"},
				{Time: "10:00", Title: "Opening Keynote", Description: "Where infrastructure is heading"},
				{Time: "12:30", Title: "Lunch", Description: "Catered lunch in the main hall"},
				{Time: "14:00", Title: "Breakout Sessions", Description: "Three parallel tracks"},
			},
			Assets: []models.Asset{},
		},
		{
			ID:          "demo-jazz-night",
			Title:       "Jazz Under the Stars",
			Description: "An open-air evening with a live quartet, local food trucks and a view over the bay.",
			Date:        "2026-08-21T19:30:00Z",
			Location:    "Waterfront Park Amphitheater",
			Capacity:    200,
			Bookings:    87,
			Price:       45,
			Image:       "https://images.unsplash.com/photo-1511192336575-5a79af67a629",
			Status:      models.EventStatusPublished,
			Tags:        []string{"music", "outdoor", "evening"},
			Agenda: []models.AgendaItem{
				{Time: "19:30", Title: "Doors Open", Description: "Food trucks and drinks"},
				{Time: "20:00", Title: "First Set", Description: "Standards and originals"},
				{Time: "21:15", Title: "Second Set", Description: "Guest vocalist"},
			},
			Assets: []models.Asset{},
		},
		{
			ID:          "demo-community-workshop",
			Title:       "Community Pottery Workshop",
			Description: "Hands-on introduction to wheel throwing. All materials included, no experience needed.",
			Date:        "2026-06-05T14:00:00Z",
			Location:    "Riverside Arts Studio",
			Capacity:    16,
			Bookings:    16,
			Price:       0,
			Image:       "https://images.unsplash.com/photo-1565193566173-7a0ee3dbe261",
			Status:      models.EventStatusDraft,
			Tags:        []string{"workshop", "art", "free"},
			Agenda: []models.AgendaItem{
				{Time: "14:00", Title: "Welcome", Description: "Safety and studio tour"},
				{Time: "14:30", Title: "Wheel Basics", Description: "Centering and shaping"},
			},
			Assets: []models.Asset{},
		},
	}
}

// DemoSettings accompanies DemoEvents
func DemoSettings() models.Settings {
	s := models.DefaultSettings()
	s.PaymentConfig = models.StripeConfig{Currency: "usd"}
	return s
}
