package helpers

import (
	_ "embed"
	"fmt"
	"math/rand"

	"github.com/Jeffail/gabs"
)

//go:embed i18n.json
var translationsFile []byte

var translations *gabs.Container

func LoadTranslations() {
	json, err := gabs.ParseJSON(translationsFile)
	Relax(err)

	translations = json
}

// GetText returns the translation for $id, a random item if it is an array,
// or $id itself if there is none
func GetText(id string) string {
	if translations == nil || !translations.ExistsP(id) {
		return id
	}

	item := translations.Path(id)

	// If this is an object return __
	if _, ok := item.Data().(map[string]interface{}); ok {
		item = item.Path("__")
	}

	switch value := item.Data().(type) {
	case string:
		return value
	case []interface{}:
		if len(value) == 0 {
			return id
		}
		if text, ok := value[rand.Intn(len(value))].(string); ok {
			return text
		}
	}

	return id
}

func GetTextF(id string, replacements ...interface{}) string {
	return fmt.Sprintf(GetText(id), replacements...)
}
