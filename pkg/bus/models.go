// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

// modelNames maps actuator model numbers to their marketing names.
var modelNames = map[uint16]string{
	350:  "XL320",
	1060: "XL430-W250",
	1090: "2XL430-W250",
	1190: "XL330-M077",
	1200: "XL330-M288",
	1020: "XM430-W350",
	1030: "XM430-W210",
	1120: "XM540-W270",
	1130: "XM540-W150",
	1000: "XH430-W350",
	1010: "XH430-W210",
	1040: "XH430-V350",
	1050: "XH430-V210",
	1100: "XH540-W270",
	1110: "XH540-W150",
	30:   "MX-28(2.0)",
	311:  "MX-64(2.0)",
	321:  "MX-106(2.0)",
}

// ModelName returns the human name for a model number, or "unknown" when
// the number is not catalogued.
func ModelName(modelNumber uint16) string {
	if name, ok := modelNames[modelNumber]; ok {
		return name
	}
	return "unknown"
}
