package model

import "time"

type Session struct {
	Key           *Key      `json:"-" bson:"-"`
	Name          string    `json:"name" bson:"name"`
	Highlights    string    `json:"highlights" bson:"highlights"`
	Speaker       string    `json:"speaker" bson:"speaker"`
	Duration      int       `json:"duration" bson:"duration"`
	TypeOfSession string    `json:"typeOfSession" bson:"typeOfSession"`
	Date          time.Time `json:"date" bson:"date"`
	StartTime     string    `json:"startTime" bson:"startTime"`
}

func (s *Session) SetKey(k *Key) { s.Key = k }
