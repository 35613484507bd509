package helpers

import (
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/models"
	"github.com/globalsign/mgo"
	"github.com/pkg/errors"
)

var (
	mDbSession  *mgo.Session
	mDbDatabase string
)

// ConnectMDB connects to mongodb and stores the session
func ConnectMDB(url string, database string) {
	var err error

	log := cache.GetLogger().WithField("module", "mdb")
	log.Info("Connecting to " + url)

	mgo.SetDebug(false)

	newUrl := strings.TrimSuffix(url, "?ssl=true")
	newUrl = strings.Replace(newUrl, "ssl=true&", "", -1)

	dialInfo, err := mgo.ParseURL(newUrl)
	if err != nil {
		log.Error(err.Error())
		panic(err)
	}
	dialInfo.Timeout = 10 * time.Second

	// setup TLS if we use SSL
	if newUrl != url {
		tlsConfig := &tls.Config{}

		dialInfo.DialServer = func(addr *mgo.ServerAddr) (net.Conn, error) {
			return tls.Dial("tcp", addr.String(), tlsConfig)
		}
	}

	mDbSession, err = mgo.DialWithInfo(dialInfo)
	if err != nil {
		log.Error(err.Error())
		panic(err)
	}

	mDbSession.SetMode(mgo.Primary, false)
	mDbSession.SetSafe(&mgo.Safe{})

	mDbDatabase = database

	log.Info("Connected!")
}

// GetMDb is a simple getter for the mongodb database.
func GetMDb() *mgo.Database {
	return mDbSession.DB(mDbDatabase)
}

// GetMDbSession is a simple getter for the mongodb session.
func GetMDbSession() *mgo.Session {
	return mDbSession
}

func MdbCollection(collection models.MongoDbCollection) *mgo.Collection {
	return GetMDb().C(collection.String())
}

func MDbIter(query *mgo.Query) *mgo.Iter {
	return query.Iter()
}

func MdbOne(query *mgo.Query, object interface{}) error {
	return query.One(object)
}

func IsMdbNotFound(err error) bool {
	return errors.Cause(err) == mgo.ErrNotFound
}
