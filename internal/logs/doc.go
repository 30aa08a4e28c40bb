// Package logs reads back the runner log file for "kiritan logs".
//
// Console records span several lines (a header plus indented attribute
// lines), so filters decide on header lines and continuation lines follow
// the decision of the header they belong to.
package logs
