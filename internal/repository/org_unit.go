package repository

import "strings"

// SubUnitPrefix returns the prefix shared by every unit strictly below
// orgUnit. "/sales" and "/sales/" both yield "/sales/", so "/salesforce"
// is not a sub unit of "/sales".
func SubUnitPrefix(orgUnit string) string {
	return strings.TrimSuffix(orgUnit, "/") + "/"
}

// InOrgUnit reports whether unit is orgUnit itself or one of its sub units.
func InOrgUnit(unit, orgUnit string) bool {
	base := strings.TrimSuffix(orgUnit, "/")
	return unit == base || strings.HasPrefix(unit, base+"/")
}
