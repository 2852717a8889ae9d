// Package render produces a self-contained Leaflet HTML map for a set
// of fire detections.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
)

// placeholder shown in popups for absent optional fields.
const missingField = "n/a"

// marker is the shape handed to the browser-side Leaflet code.
type marker struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
	Popup  string  `json:"popup"`
}

type templateData struct {
	CenterLat   float64
	CenterLon   float64
	MarkersJSON template.JS
	Total       int
	Shown       int
}

// Render builds the map artifact. The view centers on the mean of
// detection coordinates, or the bounding-box midpoint when the set is
// empty. Markers beyond the cap are silently truncated, not sampled.
func Render(detections []domain.Detection, bbox domain.BoundingBox, markerCap int) ([]byte, error) {
	centerLat, centerLon := center(detections, bbox)

	shown := detections
	if len(shown) > markerCap {
		shown = shown[:markerCap]
	}

	markers := make([]marker, len(shown))
	for i, d := range shown {
		markers[i] = marker{
			Lat:    d.Latitude,
			Lon:    d.Longitude,
			Radius: domain.MarkerRadius(d.FRP),
			Color:  d.Bucket.Color(),
			Popup:  popupText(d),
		}
	}

	markersJSON, err := json.Marshal(markers)
	if err != nil {
		return nil, fmt.Errorf("marshal markers: %w", err)
	}

	var buf bytes.Buffer
	err = mapTemplate.Execute(&buf, templateData{
		CenterLat:   centerLat,
		CenterLon:   centerLon,
		MarkersJSON: template.JS(markersJSON), //nolint:gosec // marshaled from typed data, not user HTML
		Total:       len(detections),
		Shown:       len(markers),
	})
	if err != nil {
		return nil, fmt.Errorf("execute map template: %w", err)
	}
	return buf.Bytes(), nil
}

// center averages detection coordinates, falling back to the bbox midpoint.
func center(detections []domain.Detection, bbox domain.BoundingBox) (lat, lon float64) {
	if len(detections) == 0 {
		return bbox.Center()
	}
	var sumLat, sumLon float64
	for _, d := range detections {
		sumLat += d.Latitude
		sumLon += d.Longitude
	}
	n := float64(len(detections))
	return sumLat / n, sumLon / n
}

func popupText(d domain.Detection) string {
	frp := missingField
	if d.FRP.Valid {
		frp = fmt.Sprintf("%.1f MW", d.FRP.Value)
	}
	brightness := missingField
	if d.Brightness.Valid {
		brightness = fmt.Sprintf("%.1f K", d.Brightness.Value)
	}
	place := ""
	if d.PlaceName != "" {
		place = d.PlaceName + " - "
	}
	return fmt.Sprintf("%s%.4f, %.4f<br>%s %s UTC<br>confidence %.0f (%s)<br>FRP %s, brightness %s",
		place, d.Latitude, d.Longitude, d.AcqDate, d.AcqTime, d.Confidence, d.Bucket, frp, brightness)
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
   <meta charset="utf-8">
   <title>Fire Detections</title>
   <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" />
   <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
   <style>
      html, body { margin: 0; height: 100%; }
      #map { height: 100%; }
      .count-badge {
         position: absolute; top: 10px; right: 10px; z-index: 1000;
         background: rgba(255,255,255,0.9); padding: 6px 10px;
         border-radius: 4px; font-family: sans-serif; font-size: 13px;
      }
   </style>
</head>
<body>
   <div id="map"></div>
   <div class="count-badge">{{.Shown}} of {{.Total}} detections</div>
   <script>
      const map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 6);
      L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
         attribution: '&copy; OpenStreetMap contributors'
      }).addTo(map);

      const markers = {{.MarkersJSON}};
      for (const m of markers) {
         L.circleMarker([m.lat, m.lon], {
            radius: m.radius,
            color: m.color,
            fillColor: m.color,
            fill: true,
            fillOpacity: 0.7
         }).bindPopup(m.popup).addTo(map);
      }
   </script>
</body>
</html>
`))
