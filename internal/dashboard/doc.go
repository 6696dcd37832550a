// Package dashboard loads dashboard definitions and watches them for
// changes.
//
// A definition names the dashboard, its widgets and its automation script,
// either inline or in a separate file:
//
//	id: greenhouse
//	name: Greenhouse
//	scriptFile: greenhouse.lua
//	widgets:
//	  - id: fan
//	    type: switch
//	    config:
//	      targetId: fan-relay
//
// YAML and JSON are both accepted; the format follows the file extension.
package dashboard
