// Package formula compiles and runs calculator formulas.
//
// A formula body is a short JavaScript-flavoured script over a fixed list of
// numeric parameters:
//
//	const dose_total = weight * dose;
//	if (dose_total > 100) {
//	  return 'Error: dose above 100 mg';
//	}
//	return dose_total / concentration;
//
// The grammar is closed: local bindings (const, let, var), assignment,
// if/else, return, arrow functions, arithmetic, comparison and logical
// operators, string concatenation, Math, isNaN, isFinite, parseFloat,
// Number and the toFixed/toExponential/toPrecision number methods. There are
// no loops and no I/O, and every evaluation runs under a step and call-depth
// budget, so a formula always terminates.
//
// Compile turns a body into a *Func without running it. (*Func).Validate
// performs the authoring-time smoke test, and (*Func).Call evaluates the
// formula for one input tuple.
package formula
