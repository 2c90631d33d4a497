package content

import "encoding/json"

// DefaultAbout is the starter text of a new site
const DefaultAbout = "Welcome to your new FTC team site! Edit this content in the dashboard."

// DefaultRaw returns the stored form of a new site's content. The founding
// year is left out so it follows the current year until the team sets it.
func DefaultRaw(teamName string) map[string]interface{} {
	return map[string]interface{}{
		"team": map[string]interface{}{
			"name":   teamName,
			"number": "",
			"school": "",
			"city":   "",
			"state":  "",
			"about":  DefaultAbout,
		},
		"links": []interface{}{
			map[string]interface{}{
				"label":    "What is FIRST Tech Challenge?",
				"href":     "https://www.firstinspires.org/robotics/ftc",
				"external": true,
			},
			map[string]interface{}{
				"label": "Competition & Practice Calendar",
				"href":  "#calendar",
			},
		},
		"theme": map[string]interface{}{
			"background":     DefaultBackground,
			"card":           DefaultCard,
			"text":           DefaultText,
			"headline":       DefaultHeadline,
			"footerText":     DefaultFooterText,
			"accent":         DefaultAccent,
			"headerBg":       DefaultHeaderBg,
			"headerText":     DefaultHeaderText,
			"buttonText":     DefaultButtonText,
			"underlineLinks": true,
		},
		"sponsors": map[string]interface{}{
			"platinum": []interface{}{},
			"gold":     []interface{}{},
			"silver":   []interface{}{},
			"bronze":   []interface{}{},
		},
	}
}

// DefaultJSON returns DefaultRaw encoded for storage
func DefaultJSON(teamName string) []byte {
	data, err := json.Marshal(DefaultRaw(teamName))
	if err != nil {
		// Only maps, slices and scalars are encoded.
		panic(err)
	}
	return data
}

// Default returns the normalized starter document for teamName
func Default(teamName string) Document {
	return Normalize(DefaultRaw(teamName), teamName)
}
