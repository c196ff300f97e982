/*
Package css converts raw style property values into numbers.

Every property of a compiled rule ends up in a numeric buffer of the
flattened tree, so every value has to have a numeric reading:

    #rgb, #rrggbb       colors, packed as 0xffrrggbb
    #aarrggbb           colors with explicit alpha, taken verbatim
    rgb(r, g, b)        colors, packed as r·65536 + g·256 + b
    red, gray, …        a few named colors
    12pt                dimensions, in points
    3.25                plain numbers

Everything else is an error.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package css
