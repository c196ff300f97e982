/*
Package cssom abstracts style sheets of rules which are compiled into
selector indices.

A style sheet is a sequence of rules. Each rule has a prelude, i.e. a
comma-separated group of selectors, and a block of property declarations:

    box > box, #top { x: 1; fill: #ff0000; }

Parsing of rule text is done by concrete implementations of interface
StyleSheet (e.g., see package douceuradapter). Selector preludes are
interpreted by package selector, property values by package css.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package cssom
