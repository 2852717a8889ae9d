// Package domain models NASA FIRMS fire detection data.
//
// # Data Source
//
// Detections come from the NASA FIRMS area API
// (https://firms.modaps.eosdis.nasa.gov/api/area/), which serves
// near-real-time thermal anomaly observations from three satellite
// products: VIIRS_NOAA20_NRT, VIIRS_SNPP_NRT, and MODIS_NRT. One area
// request returns delimited tabular text with a header row; the columns
// of interest are latitude, longitude, bright_ti4, frp, confidence,
// acq_date, and acq_time.
//
// # FIRMS Data Conventions
//
// Acquisition time:
//
//	HHMM in 24-hour UTC notation with leading zeros stripped,
//	e.g. "451" = 04:51 UTC. Combined with acq_date (YYYY-MM-DD) to
//	produce a full UTC timestamp. See [CombineAcquisitionTime].
//
// Confidence (varies by product):
//
//	VIIRS products report categorical values: "l"/"low", "n"/"nominal",
//	"h"/"high", mapped to fixed numeric buckets 30, 50, and 80.
//	MODIS reports numeric 0-100. Values that parse as neither default
//	to nominal (50) so a malformed field never drops a detection.
//	See [NormalizeConfidence].
//
// Radiative power (FRP):
//
//	Fire radiative power in megawatts, an intensity proxy. Absent or
//	unparseable values are treated as missing for display but as 0 for
//	threshold math, so a bad reading never classifies as high intensity.
//
// Display tiers:
//
//	confidence >= 80 → "high" (red) | >= 50 → "medium" (orange) |
//	else "low" (yellow). Deterministic and total over every input.
//
// # ID Generation
//
// Detection IDs are deterministic SHA-256 hashes of
// source|lat|lon|date|time, so refetching the same window yields the
// same IDs and downstream consumers can de-duplicate replays.
package domain
