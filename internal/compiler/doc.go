// Package compiler turns template strings into immutable domain.Template trees
// and flattens resolved prompts back into text.
//
// Grammar:
//
//	Template    := (Literal | Alternation)*
//	Alternation := '{' '?' Template '}'             optional fragment
//	             | '{' '#' Identifier '}'           list reference
//	             | '{' Template ('|' Template)* '}' explicit alternatives
//	Literal     := any run of characters other than '{' and '}'
//
// There is no escaping: '{' and '}' cannot appear as literal text.
package compiler
