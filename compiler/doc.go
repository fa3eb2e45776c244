/*

Process of compilation

Program Text ->
	parse (front) ->
Abstract Syntax Tree (ast) ->
	lower (back) ->
LLVM IR Module ->
	emit (back) ->
Relocatable Object (obj)

*/
package compiler
