// Package script compiles host functions from JavaScript source text.
//
// Guests register functions by handing the host source text such as
//
//	function(a, b) { return a + b }
//
// which Environment.Compile evaluates on a goja runtime. The runtime carries
// a minimal browser-like global scope: window is the global object, document
// has a body, and console writes through zap.
//
// Arguments are converted from the values produced by the transcoder:
// resource.Undefined becomes undefined and nil becomes null. Results come back
// the other way, with script objects kept as *goja.Object.
package script
