// Package board models the board aggregate.
//
// Boards keep task counters and are fed exclusively by a saga reaction that
// maps task events to board tracking commands. The reaction itself is pure;
// dispatch of the resulting commands happens in the runtime, so a board is
// always eventually consistent with the task stream that feeds it.
package board
