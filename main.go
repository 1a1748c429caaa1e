// SPDX-License-Identifier: MPL-2.0

package main

import cmd "ersa-cli/cmd/ersa"

func main() {
	cmd.Execute()
}
