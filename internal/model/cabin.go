package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// CabinClass is the closed set of cabins a flight sells seats in.  The
// zero value is not a valid cabin; adding a cabin means adding a constant
// here and teaching every switch on CabinClass about it.
type CabinClass uint8

const (
	CabinEconomy  CabinClass = iota + 1 // seat_pools.cabin_class = 'economy'
	CabinBusiness                       // seat_pools.cabin_class = 'business'
)

// Cabins lists every valid cabin in a stable order.
var Cabins = []CabinClass{CabinEconomy, CabinBusiness}

// ParseCabinClass converts the wire/database spelling into a CabinClass.
// Matching is case-insensitive; anything else is rejected.
func ParseCabinClass(s string) (CabinClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "economy":
		return CabinEconomy, nil
	case "business":
		return CabinBusiness, nil
	}
	return 0, fmt.Errorf("unknown cabin class %q", s)
}

// Valid reports whether c is one of the declared cabins.
func (c CabinClass) Valid() bool { return c == CabinEconomy || c == CabinBusiness }

func (c CabinClass) String() string {
	switch c {
	case CabinEconomy:
		return "economy"
	case CabinBusiness:
		return "business"
	}
	return fmt.Sprintf("cabin(%d)", uint8(c))
}

// MarshalText encodes the cabin for JSON keys and values.
func (c CabinClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid cabin class %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes "economy" or "business".
func (c *CabinClass) UnmarshalText(b []byte) error {
	v, err := ParseCabinClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Value stores the cabin as its ENUM spelling.
func (c CabinClass) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid cabin class %d", uint8(c))
	}
	return c.String(), nil
}

// Scan reads the ENUM spelling written by Value.
func (c *CabinClass) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into CabinClass", src)
}
