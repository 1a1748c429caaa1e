// SPDX-License-Identifier: MPL-2.0

// Package preprocess turns raw GPC source into a single self-contained unit
// ready for the compiler. Three passes run in a fixed order, each consuming
// the full output of the one before:
//
//  1. Import resolution: `use` and `import` statements are replaced by the
//     contents of the files they name, recursively, with circular imports
//     detected across the whole build.
//  2. Macro expansion: define! blocks are collected and removed, then every
//     macro call is rewritten until no calls remain.
//  3. Constant folding: integer expressions whose operands are all literals
//     are replaced by their computed values.
//
// Each pass is a pure text transformation. No state survives between builds:
// every call to Preprocess starts from an empty visited set and an empty
// macro table.
package preprocess
