package scoring

import (
	"regexp"
	"strings"
)

var porscheModelNumberRe = regexp.MustCompile(`9\d{2}`)

// IsPorsche911 is true for titles naming the 911 or a Porsche 9xx type number.
func IsPorsche911(title string) bool {
	if strings.Contains(title, "911") {
		return true
	}
	return strings.Contains(strings.ToLower(title), "porsche") && porscheModelNumberRe.MatchString(title)
}

// Most specific first: "GT3 RS" must be tested before "GT3".
var variantPatterns = []struct {
	name    string
	needles []string
}{
	{"GT3 RS", []string{"GT3 RS"}},
	{"GT3", []string{"GT3"}},
	{"GT2 RS", []string{"GT2 RS"}},
	{"GT2", []string{"GT2"}},
	{"Turbo S", []string{"TURBO S"}},
	{"Turbo", []string{"TURBO"}},
	{"GTS", []string{"GTS"}},
	{"Targa 4S", []string{"TARGA 4S", "TARGA4S"}},
	{"Targa 4", []string{"TARGA 4", "TARGA4"}},
	{"Targa", []string{"TARGA"}},
	{"Carrera 4S", []string{"CARRERA 4S", "CARRERA4S"}},
	{"Carrera 4", []string{"CARRERA 4", "CARRERA4"}},
	{"Carrera S", []string{"CARRERA S"}},
	{"Carrera", []string{"CARRERA"}},
}

// DetectVariant returns the 911 trim named in title, "" when none.
func DetectVariant(title string) string {
	t := strings.ToUpper(title)
	for _, p := range variantPatterns {
		for _, n := range p.needles {
			if strings.Contains(t, n) {
				return p.name
			}
		}
	}
	return ""
}

type variantSpecs struct {
	mustHave    []string
	highValue   []string
	mediumValue []string
	badSigns    []string
}

var variantKnowledge = map[string]variantSpecs{
	"GT3": {
		mustHave:    []string{"Scheckheft gepflegt", "lückenlose Wartungshistorie", "Porsche Service"},
		highValue:   []string{"Clubsport Paket", "Liftachse", "LED-Matrix", "Carbon-Paket", "Alcantara", "Keramikbremse", "PCCB", "Chrono Paket", "Vollschalensitze", "PDK", "Schaltgetriebe"},
		mediumValue: []string{"BOSE", "Burmester", "Surround View", "Sportabgasanlage", "Sport Design Lenkrad", "Approved"},
		badSigns:    []string{"Unfall", "Tieferlegung", "Chiptuning", "Leistungssteigerung", "Folierung", "tuning"},
	},
	"GT3 RS": {
		mustHave:    []string{"Scheckheft gepflegt", "Porsche Service"},
		highValue:   []string{"Weissach Paket", "Carbon-Paket", "Magnesium-Felgen", "PCCB", "Keramikbremse", "PDK", "Clubsport"},
		mediumValue: []string{"Liftachse", "Chrono Paket", "Surround View", "Approved"},
		badSigns:    []string{"Unfall", "Tieferlegung", "Chiptuning", "Tuning", "Folierung"},
	},
	"GT2 RS": {
		mustHave:    []string{"Scheckheft gepflegt", "Porsche Service"},
		highValue:   []string{"Weissach Paket", "Carbon-Paket", "PCCB", "Keramikbremse"},
		mediumValue: []string{"Chrono Paket", "Approved", "Liftachse"},
		badSigns:    []string{"Unfall", "Chiptuning", "Tuning"},
	},
	"Turbo S": {
		mustHave:    []string{"Scheckheft gepflegt"},
		highValue:   []string{"Keramikbremse", "PCCB", "Carbon-Paket", "Burmester", "Liftachse", "Chrono Paket", "Hinterachslenkung", "Sport Design"},
		mediumValue: []string{"Approved", "Panoramadach", "Surround View", "Nightvision", "Head-Up Display"},
		badSigns:    []string{"Unfall", "Chiptuning", "Tuning", "Tieferlegung"},
	},
	"Turbo": {
		mustHave:    []string{"Scheckheft gepflegt"},
		highValue:   []string{"Keramikbremse", "PCCB", "Liftachse", "Chrono Paket", "Hinterachslenkung", "Carbon-Paket"},
		mediumValue: []string{"Approved", "Burmester", "Panoramadach", "Surround View"},
		badSigns:    []string{"Unfall", "Chiptuning", "Tuning"},
	},
	"GTS": {
		mustHave:    []string{"Scheckheft gepflegt"},
		highValue:   []string{"Keramikbremse", "PCCB", "Liftachse", "Chrono Paket", "Schaltgetriebe", "PDK", "Carbon-Paket", "Clubsport"},
		mediumValue: []string{"Approved", "Burmester", "Hinterachslenkung"},
		badSigns:    []string{"Unfall", "Tuning", "Tieferlegung"},
	},
	"Carrera S": {
		mustHave:    []string{"Scheckheft gepflegt"},
		highValue:   []string{"Sport Chrono Paket", "Keramikbremse", "PCCB", "Liftachse", "PASM", "Hinterachslenkung", "Schaltgetriebe"},
		mediumValue: []string{"Burmester", "Panoramadach", "Approved", "Surround View", "Head-Up Display"},
		badSigns:    []string{"Unfall", "Tuning", "Tieferlegung"},
	},
	"Carrera 4S": {
		mustHave:    []string{"Scheckheft gepflegt"},
		highValue:   []string{"Sport Chrono Paket", "Keramikbremse", "PCCB", "Liftachse", "PASM", "Hinterachslenkung"},
		mediumValue: []string{"Burmester", "Panoramadach", "Approved", "Surround View"},
		badSigns:    []string{"Unfall", "Tuning", "Tieferlegung"},
	},
	"Carrera": {
		mustHave:    []string{"Scheckheft gepflegt"},
		highValue:   []string{"Sport Chrono Paket", "PASM", "Liftachse", "Schaltgetriebe", "Keramikbremse"},
		mediumValue: []string{"Approved", "Panoramadach", "Burmester", "Surround View"},
		badSigns:    []string{"Unfall", "Tuning", "Tieferlegung"},
	},
}
