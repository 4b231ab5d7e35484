package render

import (
	"encoding/json"
	"html/template"
	"io"

	"github.com/rotisserie/eris"

	"github.com/geowerk/postal-cli/internal/model"
)

// MapPoint is one marker on the rendered map.
type MapPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Code  string  `json:"code"`
	City  string  `json:"city"`
	Color string  `json:"color"`
}

// MapData holds everything the Leaflet template needs.
type MapData struct {
	Title   string
	Center  [2]float64
	Zoom    int
	Points  []MapPoint
	Borders [][][2]float64
}

// marker colors per category
const (
	colorReference = "green"
	colorNearby    = "red"
	colorOther     = "blue"
)

// BuildMap classifies the records into map points and centers the view on
// the mean coordinate. Records without coordinates are skipped.
func BuildMap(title string, records []model.Record, refCode string, nearbyCodes []string) MapData {
	nearby := make(map[string]bool, len(nearbyCodes))
	for _, c := range nearbyCodes {
		nearby[c] = true
	}

	data := MapData{Title: title, Zoom: 6}
	var sumLat, sumLng float64
	for _, r := range records {
		if !r.HasCoordinates() {
			continue
		}
		color := colorOther
		switch {
		case r.PostalCode == refCode:
			color = colorReference
		case nearby[r.PostalCode]:
			color = colorNearby
		}
		data.Points = append(data.Points, MapPoint{
			Lat:   *r.Latitude,
			Lng:   *r.Longitude,
			Code:  r.PostalCode,
			City:  r.City,
			Color: color,
		})
		sumLat += *r.Latitude
		sumLng += *r.Longitude
	}

	if n := len(data.Points); n > 0 {
		data.Center = [2]float64{sumLat / float64(n), sumLng / float64(n)}
	}
	return data
}

// HTML writes a self-contained Leaflet map document. Reference markers
// render above nearby markers, which render above the rest.
func HTML(w io.Writer, data MapData) error {
	points, err := json.Marshal(data.Points)
	if err != nil {
		return eris.Wrap(err, "render: marshal points")
	}
	borders, err := json.Marshal(data.Borders)
	if err != nil {
		return eris.Wrap(err, "render: marshal borders")
	}

	err = mapTemplate.Execute(w, map[string]any{
		"Title":   data.Title,
		"Lat":     data.Center[0],
		"Lng":     data.Center[1],
		"Zoom":    data.Zoom,
		"Points":  template.JS(points),
		"Borders": template.JS(borders),
	})
	return eris.Wrap(err, "render: execute map template")
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Lat}}, {{.Lng}}], {{.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var borders = {{.Borders}};
(borders || []).forEach(function (line) {
  L.polyline(line, {color: 'black', weight: 1, opacity: 0.5}).addTo(map);
});

var points = {{.Points}};
var order = {blue: 0, red: 1, green: 2};
points.sort(function (a, b) { return order[a.color] - order[b.color]; });
points.forEach(function (p) {
  L.circleMarker([p.lat, p.lng], {
    radius: p.color === 'blue' ? 3 : 6,
    color: p.color,
    fillColor: p.color,
    fillOpacity: 0.8
  }).bindPopup(p.code + ' ' + p.city).addTo(map);
});
</script>
</body>
</html>
`))
