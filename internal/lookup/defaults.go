package lookup

import "fmt"

// Ship type groups for the second digit of codes 20-99.
var typeGroups = map[int]string{
	2: "Wing in Ground",
	4: "High Speed Craft",
	6: "Passenger",
	7: "Cargo",
	8: "Tanker",
	9: "Other Type",
}

var hazardCategories = map[int]string{
	0: "all ships of this type",
	1: "hazardous category A",
	2: "hazardous category B",
	3: "hazardous category C",
	4: "hazardous category D",
	9: "no additional information",
}

var specialTypes = map[int]string{
	0:  "Not Available",
	30: "Fishing",
	31: "Towing",
	32: "Towing: length exceeds 200m or breadth exceeds 25m",
	33: "Dredging or underwater ops",
	34: "Diving ops",
	35: "Military ops",
	36: "Sailing",
	37: "Pleasure Craft",
	38: "Reserved",
	39: "Reserved",
	50: "Pilot Vessel",
	51: "Search and Rescue vessel",
	52: "Tug",
	53: "Port Tender",
	54: "Anti-pollution equipment",
	55: "Law Enforcement",
	56: "Spare - Local Vessel",
	57: "Spare - Local Vessel",
	58: "Medical Transport",
	59: "Noncombatant ship according to RR Resolution No. 18",
}

// U.S. Coast Guard extension codes found in MarineCadastre extracts.
var uscgTypes = map[int]string{
	1001: "Commercial Fishing",
	1002: "Fish Processing",
	1003: "Freight Barge",
	1004: "Freight Ship",
	1005: "Industrial Vessel",
	1006: "Miscellaneous",
	1007: "Mobile Offshore Drilling Unit",
	1008: "Non-vessel",
	1009: "Non-Self Propelled",
	1010: "Offshore Supply Vessel",
	1011: "Oil Recovery",
	1012: "Passenger",
	1013: "Public Vessel, Unclassified",
	1014: "Recreational",
	1015: "Research Vessel",
	1016: "School Ship",
	1017: "Tank Barge",
	1018: "Tank Ship",
	1019: "Unspecified",
	1020: "Military Ops",
	1021: "Search and Rescue Vessel",
	1022: "Tug",
	1023: "Towing Vessel",
	1024: "Wing in Ground Effect",
	1025: "Towing Vessel, Tow exceeds 200m or breadth exceeds 25m",
}

// DefaultVesselTypes returns the AIS ship-type table with the USCG extension.
func DefaultVesselTypes() *Table {
	entries := make(map[int]string, 120)
	for code := 1; code <= 19; code++ {
		entries[code] = "Reserved"
	}
	for group, name := range typeGroups {
		for digit := 0; digit <= 9; digit++ {
			entries[group*10+digit] = groupDescription(name, digit)
		}
	}
	for code, desc := range specialTypes {
		entries[code] = desc
	}
	for code, desc := range uscgTypes {
		entries[code] = desc
	}
	return &Table{entries: entries}
}

// DefaultCargo returns the cargo table: the second digit of the ship type
// code encodes the hazard category of what is carried.
func DefaultCargo() *Table {
	entries := make(map[int]string, 90)
	entries[0] = "Not Available"
	for tens := 2; tens <= 9; tens++ {
		for digit := 0; digit <= 9; digit++ {
			code := tens*10 + digit
			if desc, ok := specialTypes[code]; ok {
				entries[code] = desc
				continue
			}
			entries[code] = cargoDescription(digit)
		}
	}
	return &Table{entries: entries}
}

func groupDescription(group string, digit int) string {
	if cat, ok := hazardCategories[digit]; ok {
		return fmt.Sprintf("%s, %s", group, cat)
	}
	return fmt.Sprintf("%s, reserved for future use", group)
}

func cargoDescription(digit int) string {
	switch digit {
	case 0:
		return "No hazardous cargo information"
	case 1, 2, 3, 4:
		return "Carrying DG, HS, or MP, " + hazardCategories[digit]
	case 9:
		return "No additional information"
	default:
		return "Reserved for future use"
	}
}
