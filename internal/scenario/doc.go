// Package scenario runs declarative harness fixtures.
//
// A scenario is a YAML file naming stand-in tasks, each immediate or delayed
// with a predetermined success value or failure, plus expectations on what
// each delivers:
//
//	name: delayed_network_failure
//	description: fetch fails after 200ms
//	tasks:
//	  - name: fetch
//	    mode: delayed
//	    delay: 200ms
//	    outcome:
//	      failure:
//	        message: network down
//	expect:
//	  - task: fetch
//	    case: failure
//	    messages: ["network down"]
//	    min_elapsed: 200ms
//
// Fixtures are checked three times before they run: strict YAML decoding,
// the embedded CUE schema (schema.cue), and Validate.
//
// Run starts the tasks on a fresh task.Runtime and checks the deliveries.
// Snapshot renders the reproducible part of a Report as canonical JSON for
// golden comparison.
package scenario
