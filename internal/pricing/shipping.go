package pricing

import "github.com/angelmondragon/crumbly-backend/pkg/textnorm"

// DefaultShippingFallback applies when a department is not configured at all.
const DefaultShippingFallback int64 = 20000

// Zone is the shipping tariff of one department.
type Zone struct {
	Department string
	Default    int64
	Cities     map[string]int64
}

type zoneIndex struct {
	defaultCost int64
	cities      map[string]int64
}

// ShippingTable resolves delivery cost by department and city. Lookups are
// normalised with textnorm.Key, so accents and casing never miss a match.
type ShippingTable struct {
	fallback int64
	zones    map[string]zoneIndex
}

func NewShippingTable(zones []Zone, fallback int64) *ShippingTable {
	if fallback <= 0 {
		fallback = DefaultShippingFallback
	}
	t := &ShippingTable{fallback: fallback, zones: make(map[string]zoneIndex, len(zones))}
	for _, z := range zones {
		idx := zoneIndex{defaultCost: z.Default, cities: make(map[string]int64, len(z.Cities))}
		for city, cost := range z.Cities {
			idx.cities[textnorm.Key(city)] = cost
		}
		t.zones[textnorm.Key(z.Department)] = idx
	}
	return t
}

// DefaultShippingTable is the tariff the storefront ships with.
func DefaultShippingTable(fallback int64) *ShippingTable {
	return NewShippingTable(defaultZones, fallback)
}

// ShippingCost resolves city, then department default, then the global fallback.
func (t *ShippingTable) ShippingCost(department, city string) int64 {
	zone, ok := t.zones[textnorm.Key(department)]
	if !ok {
		return t.fallback
	}
	if cost, ok := zone.cities[textnorm.Key(city)]; ok {
		return cost
	}
	return zone.defaultCost
}

var defaultZones = []Zone{
	{
		Department: "Bogotá D.C.",
		Default:    10000,
		Cities:     map[string]int64{"Bogotá": 10000, "Usme": 12000, "Sumapaz": 18000},
	},
	{
		Department: "Cundinamarca",
		Default:    15000,
		Cities: map[string]int64{
			"Soacha":    12000,
			"Chía":      12000,
			"Cota":      12000,
			"Funza":     13000,
			"Mosquera":  13000,
			"Cajicá":    13000,
			"Madrid":    14000,
			"Zipaquirá": 15000,
			"La Calera": 15000,
			"Sopó":      15000,
		},
	},
	{
		Department: "Boyacá",
		Default:    18000,
		Cities:     map[string]int64{"Tunja": 16000, "Duitama": 18000, "Sogamoso": 18000},
	},
	{
		Department: "Tolima",
		Default:    20000,
		Cities:     map[string]int64{"Ibagué": 17000},
	},
	{
		Department: "Meta",
		Default:    20000,
		Cities:     map[string]int64{"Villavicencio": 17000},
	},
	{
		Department: "Antioquia",
		Default:    22000,
		Cities: map[string]int64{
			"Medellín": 18000,
			"Envigado": 18000,
			"Bello":    18000,
			"Itagüí":   18000,
			"Sabaneta": 18000,
			"Rionegro": 20000,
		},
	},
	{
		Department: "Valle del Cauca",
		Default:    22000,
		Cities:     map[string]int64{"Cali": 18000, "Palmira": 20000},
	},
	{
		Department: "Santander",
		Default:    22000,
		Cities:     map[string]int64{"Bucaramanga": 18000, "Floridablanca": 18000},
	},
	{
		Department: "Atlántico",
		Default:    25000,
		Cities:     map[string]int64{"Barranquilla": 20000, "Soledad": 21000},
	},
}
