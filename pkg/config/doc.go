/*
Package config loads the settings for a copytree run.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +-----------+-----------+-----------+
	      |           |                       |
	+-----+-----+ +---+-----+           +----+----+
	|   YAML    | |  JSON   |           |   HCL   |
	| Parser    | | Parser  |           | Parser  |
	+-----------+ +---------+           +---------+

🎯 Purpose:
- Picks a parser from the file name
- Resolves relative paths against the config file's directory
- Fills defaults and validates every value up front

🔄 Flow:
1. Reads the file
2. Parses with the registered parser for its extension
3. Validates and applies defaults
4. Hands out a ready Config plus the filter it describes

🔍 Example:

	cfg, err := config.Load(ctx, ".copytree.yaml")
	if err != nil {
		return err
	}
	glob, err := cfg.Filter()

HCL files may reference the environment:

	source      = "${env.HOME}/data"
	destination = "/backup/data"
	exclude     = ["*.lck", ".git"]
*/
package config
