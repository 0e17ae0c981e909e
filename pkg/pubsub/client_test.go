package pubsub

import (
	"testing"

	"github.com/angelmondragon/crumbly-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{project: "crumbly", name: "crumbly-order-events", want: "projects/crumbly/topics/crumbly-order-events"},
		{project: "crumbly", name: "projects/other/topics/x", want: "projects/other/topics/x"},
		{project: "", name: "x", want: ""},
		{project: "crumbly", name: "  ", want: ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q,%q) = %q want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", PaymentsTopic: " "})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestNilClientPublisher(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("nil client should return nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
