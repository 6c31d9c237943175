package analysis

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/uhi-cli/internal/model"
)

// CityEntry is one city of a cities file.
type CityEntry struct {
	Country string `yaml:"country"`
	Name    string `yaml:"name"`
}

// LoadCities reads a YAML cities file:
//
//	cities:
//	  - country: FRA
//	    name: Paris
func LoadCities(path string) ([]model.City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: read cities %s", path)
	}

	var wrapper struct {
		Cities []CityEntry `yaml:"cities"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "analysis: parse cities")
	}

	cities := make([]model.City, 0, len(wrapper.Cities))
	for i, e := range wrapper.Cities {
		if e.Country == "" || e.Name == "" {
			return nil, eris.Errorf("analysis: cities[%d] needs country and name", i)
		}
		c, err := model.ParseCity(e.Country + ":" + e.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: cities[%d]", i)
		}
		cities = append(cities, c)
	}
	if len(cities) == 0 {
		return nil, eris.Errorf("analysis: %s lists no cities", path)
	}
	return cities, nil
}

// ParseCities parses "COUNTRY:Name" entries.
func ParseCities(specs []string) ([]model.City, error) {
	cities := make([]model.City, 0, len(specs))
	for _, s := range specs {
		c, err := model.ParseCity(s)
		if err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, nil
}
