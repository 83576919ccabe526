package main

import (
	"net/http"
	"sort"
	"strings"

	"github.com/starzmeet/listing-agent/internal/model"
)

// locationParts splits a "Country > State > City" path. Records without a
// full hierarchy return nil and are excluded from the location routes.
func locationParts(rec model.ListingRecord) []string {
	if rec.Location == "" || !strings.Contains(rec.Location, " > ") {
		return nil
	}
	return strings.Split(rec.Location, " > ")
}

type nameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func sortedCounts(counts map[string]int) []nameCount {
	out := make([]nameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, nameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *server) handleCountries(w http.ResponseWriter, r *http.Request) {
	stored, err := s.st.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts := map[string]int{}
	for _, sr := range stored {
		if parts := locationParts(sr.Record); len(parts) >= 1 {
			counts[parts[0]]++
		}
	}
	respondJSON(w, http.StatusOK, sortedCounts(counts))
}

func (s *server) handleStates(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		respondError(w, http.StatusBadRequest, "country parameter required")
		return
	}

	stored, err := s.st.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts := map[string]int{}
	for _, sr := range stored {
		if parts := locationParts(sr.Record); len(parts) >= 2 && parts[0] == country {
			counts[parts[1]]++
		}
	}
	respondJSON(w, http.StatusOK, sortedCounts(counts))
}

func (s *server) handleCitiesByState(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	state := r.URL.Query().Get("state")
	if country == "" || state == "" {
		respondError(w, http.StatusBadRequest, "country and state parameters required")
		return
	}

	stored, err := s.st.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts := map[string]int{}
	for _, sr := range stored {
		if parts := locationParts(sr.Record); len(parts) >= 3 && parts[0] == country && parts[1] == state {
			counts[parts[2]]++
		}
	}
	respondJSON(w, http.StatusOK, sortedCounts(counts))
}

// placeSummary is the trimmed record shape returned by the place-listing
// routes.
type placeSummary struct {
	PlaceID  string `json:"place_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Address  string `json:"address"`
	Location string `json:"location"`
	Synced   bool   `json:"wp_synced"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

func (s *server) handlePlacesByLocation(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	state := r.URL.Query().Get("state")
	city := r.URL.Query().Get("city")
	unsyncedOnly := strings.EqualFold(r.URL.Query().Get("unsynced_only"), "true")

	stored, err := s.st.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	places := []placeSummary{}
	for _, sr := range stored {
		parts := locationParts(sr.Record)
		if parts == nil {
			continue
		}
		if country != "" && parts[0] != country {
			continue
		}
		if state != "" && (len(parts) < 2 || parts[1] != state) {
			continue
		}
		if city != "" && (len(parts) < 3 || parts[2] != city) {
			continue
		}
		if unsyncedOnly && sr.Sync.Synced {
			continue
		}
		places = append(places, placeSummary{
			PlaceID:  sr.Record.PlaceID,
			Title:    sr.Record.Title,
			Category: sr.Record.Category,
			Address:  sr.Record.Address,
			Location: sr.Record.Location,
			Synced:   sr.Sync.Synced,
			Phone:    sr.Record.Phone,
			Website:  sr.Record.Website,
		})
	}
	respondJSON(w, http.StatusOK, places)
}

// cityGroup is one fully-classified city with its record count.
type cityGroup struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
	Location string `json:"location"`
	Count    int    `json:"count"`
}

func (s *server) handleCities(w http.ResponseWriter, r *http.Request) {
	stored, err := s.st.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	groups := map[string]*cityGroup{}
	for _, sr := range stored {
		parts := locationParts(sr.Record)
		if len(parts) < 3 {
			continue
		}
		key := parts[0] + "|" + parts[1] + "|" + parts[2]
		if _, ok := groups[key]; !ok {
			groups[key] = &cityGroup{
				Country:  parts[0],
				State:    parts[1],
				City:     parts[2],
				Location: sr.Record.Location,
			}
		}
		groups[key].Count++
	}

	cities := make([]cityGroup, 0, len(groups))
	for _, g := range groups {
		cities = append(cities, *g)
	}
	sort.Slice(cities, func(i, j int) bool {
		if cities[i].Country != cities[j].Country {
			return cities[i].Country < cities[j].Country
		}
		if cities[i].State != cities[j].State {
			return cities[i].State < cities[j].State
		}
		return cities[i].City < cities[j].City
	})
	respondJSON(w, http.StatusOK, cities)
}
