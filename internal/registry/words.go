package registry

var states = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado", "connecticut", "delaware", "florida", "georgia",
	"hawaii", "idaho", "illinois", "indiana", "iowa", "kansas", "kentucky", "louisiana", "maine", "maryland",
	"massachusetts", "michigan", "minnesota", "mississippi", "missouri", "montana", "nebraska", "nevada", "hampshire", "jersey",
	"mexico", "york", "carolina", "dakota", "ohio", "oklahoma", "oregon", "pennsylvania", "rhode", "tennessee",
	"texas", "utah", "vermont", "virginia", "washington", "wisconsin", "wyoming",
}

var animals = []string{
	"aardvark", "badger", "beaver", "bison", "bobcat", "camel", "cheetah", "coyote", "dingo", "dolphin",
	"eagle", "falcon", "ferret", "gazelle", "gecko", "giraffe", "heron", "ibex", "jackal", "koala",
	"lemur", "lynx", "marmot", "moose", "narwhal", "ocelot", "otter", "panda", "pelican", "puffin",
	"quail", "raccoon", "salmon", "sloth", "tapir", "toucan", "walrus", "wombat", "yak", "zebra",
}
