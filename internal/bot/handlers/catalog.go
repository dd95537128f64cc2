package handlers

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/workflow"
)

// modelOptions lists the models offered per brand and device type.
var modelOptions = map[string]map[domain.DeviceType][]string{
	"Apple": {
		domain.DeviceSmartphone: {"iPhone 13", "iPhone 14", "iPhone 15"},
		domain.DeviceTablet:     {"iPad Air", "iPad Pro"},
	},
	"Samsung": {
		domain.DeviceSmartphone: {"Galaxy S22", "Galaxy S23", "Galaxy A54"},
		domain.DeviceTablet:     {"Galaxy Tab S8"},
	},
	"Xiaomi": {
		domain.DeviceSmartphone: {"Redmi Note 11", "Redmi Note 12", "Xiaomi 13"},
		domain.DeviceTablet:     {"Pad 6"},
	},
	"Huawei": {
		domain.DeviceSmartphone: {"P50", "Nova 11"},
		domain.DeviceTablet:     {"MatePad 11"},
	},
	"Lenovo": {},
	"HP":     {},
}

var brandOrder = []string{"Apple", "Samsung", "Xiaomi", "Huawei", "Lenovo", "HP"}

var deviceTypeChoices = []string{
	string(domain.DeviceSmartphone),
	string(domain.DeviceTablet),
	string(domain.DeviceLaptop),
}

// brandChoices returns the brands offered for typ, "Other" last.
func brandChoices(typ domain.DeviceType) []string {
	out := make([]string, 0, len(brandOrder)+1)
	for _, b := range brandOrder {
		if typ == domain.DeviceLaptop || len(modelOptions[b][typ]) > 0 {
			out = append(out, b)
		}
	}
	return append(out, workflow.OtherOption)
}

// modelChoices returns the models offered for brand and typ, "Other" last.
// Unknown brands offer no buttons.
func modelChoices(brand string, typ domain.DeviceType) []string {
	models := modelOptions[brand][typ]
	if len(models) == 0 {
		return nil
	}
	return append(append([]string(nil), models...), workflow.OtherOption)
}
